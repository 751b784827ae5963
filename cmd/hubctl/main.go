// Command hubctl is the operator companion of the hub: it issues tokens,
// hashes the service secret, reads stats, listens to rooms, publishes
// events and inspects the store.
package main

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

type Config struct {
	URL          string `envconfig:"URL" default:"http://localhost:8080"`
	GRPCAddr     string `envconfig:"GRPC_ADDR" default:"localhost:9090"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	ServiceToken string `envconfig:"SERVICE_TOKEN"`
	Token        string `envconfig:"TOKEN"`
	// HUBCTL_COLOURS enables colorized output
	Colours bool `envconfig:"COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("HUBCTL", &cfg)
	return cfg, err
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "hubctl",
		Short: "Operate a restaurant hub",
		Long: `hubctl talks to a running hub over HTTP, websocket and gRPC.

Settings come from HUBCTL_* variables and can be overridden by flags.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.URL, "url", cfg.URL, "hub HTTP base URL")
	rootCmd.PersistentFlags().BoolVar(&cfg.Colours, "colours", cfg.Colours, "colorize output")

	rootCmd.AddCommand(
		tokenCmd(&cfg),
		hashSecretCmd(),
		statsCmd(&cfg),
		listenCmd(&cfg),
		publishCmd(&cfg),
		inspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
