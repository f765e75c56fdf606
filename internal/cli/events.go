package cli

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print exam events from the Kafka topic as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer, err := events.NewKafkaEventConsumer(events.ConsumerConfig{
				KafkaBrokers:  cfg.Events.GetKafkaBrokers(),
				TopicName:     cfg.Events.Topic,
				ConsumerGroup: group,
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			defer consumer.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			logger.Info("Tailing exam events", "topic", cfg.Events.Topic, "group", group)
			return consumer.Consume(ctx, func(ctx context.Context, env *events.Envelope) error {
				return enc.Encode(env)
			})
		},
	}

	cmd.Flags().StringVar(&group, "group", "exam-events-tail", "Kafka consumer group")
	return cmd
}
