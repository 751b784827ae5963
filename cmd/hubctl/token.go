package main

import (
	"fmt"
	"time"

	"restaurant-hub/auth"
	"restaurant-hub/domain"

	"github.com/spf13/cobra"
)

func tokenCmd(cfg *Config) *cobra.Command {
	var (
		userID   string
		role     string
		username string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed client token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.JWTSecret == "" {
				return fmt.Errorf("a signing secret is required, set HUBCTL_JWT_SECRET or --secret")
			}
			token, err := auth.NewTokenService(cfg.JWTSecret).Issue(userID, domain.Role(role), username, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "admin, staff, employee or customer")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&cfg.JWTSecret, "secret", cfg.JWTSecret, "signing secret")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func hashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Print the argon2id hash to put in SERVICE_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
