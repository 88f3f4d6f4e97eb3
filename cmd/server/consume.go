package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/rentals-marketplace/internal/queue"
)

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run the delivery-tracking consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Notify.RabbitURL == "" {
				return errors.New("RABBITMQ_URL is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = queue.StartDeliveryConsumer(ctx, cfg.Notify.RabbitURL, cfg.Notify.Queue, cfg.Notify.LogDir)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
