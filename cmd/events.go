/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flatcms/accounts/internal/logging"
	"github.com/flatcms/accounts/internal/mq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follows account events published by the server",
	Long: `Subscribes to the events channel and logs every account event until
interrupted. Only useful with a shared broker (rabbitmq or pubsub).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer events.Close()

		log := logging.Logger.WithField("channel", cfg.MQ.Channel)
		log.Info("Following events")
		err = events.Subscribe(ctx, cfg.MQ.Channel, func(_ context.Context, msg mq.Message) error {
			event, err := mq.DecodeEvent(msg)
			if err != nil {
				log.WithError(err).Warn("Skipping malformed event")
				return nil
			}
			log.WithFields(logrus.Fields{
				"event":       event.Name,
				"occurred_at": event.OccurredAt,
			}).Info("Event received")
			return nil
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
