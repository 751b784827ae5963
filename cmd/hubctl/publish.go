package main

import (
	"context"
	"fmt"
	"time"

	"restaurant-hub/auth"
	grpc2 "restaurant-hub/grpc"

	"github.com/goccy/go-json"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func publishCmd(cfg *Config) *cobra.Command {
	var (
		eventType string
		rooms     []string
		payload   string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an event through the gRPC ingest, as a backend would",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := ingestRequest(eventType, rooms, payload)
			if err != nil {
				return err
			}
			conn, err := grpc.NewClient(cfg.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("connect %s: %w", cfg.GRPCAddr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			ctx = metadata.AppendToOutgoingContext(ctx, auth.ServiceTokenHeader, cfg.ServiceToken)
			out, err := grpc2.Publish(ctx, conn, in)
			if err != nil {
				return err
			}
			rendered := protojson.Format(out)
			if cfg.Colours {
				rendered = color.FgGreen.Render(rendered)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "canonical event type, e.g. order.status_changed")
	cmd.Flags().StringArrayVar(&rooms, "room", nil, "target room, repeatable; default rooms when omitted")
	cmd.Flags().StringVar(&payload, "payload", "{}", "JSON payload")
	cmd.Flags().StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "hub gRPC address")
	cmd.Flags().StringVar(&cfg.ServiceToken, "service-token", cfg.ServiceToken, "internal service token")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func ingestRequest(eventType string, rooms []string, payload string) (*structpb.Struct, error) {
	var body map[string]any
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	fields := map[string]any{"type": eventType, "payload": body}
	if len(rooms) > 0 {
		list := make([]any, 0, len(rooms))
		for _, r := range rooms {
			list = append(list, r)
		}
		fields["rooms"] = list
	}
	return structpb.NewStruct(fields)
}
