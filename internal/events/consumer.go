package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

var ErrMalformedEvent = errors.New("malformed event")

// Envelope is an Event as read back from the topic, with the payload left raw
// so each consumer can decode only the types it cares about.
type Envelope struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	ExamID    uint                   `json:"exam_id,omitempty"`
	Data      json.RawMessage        `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}
	return &env, nil
}

// DecodeData unmarshals the payload into dst.
func (e *Envelope) DecodeData(dst interface{}) error {
	return json.Unmarshal(e.Data, dst)
}

type EnvelopeHandler func(ctx context.Context, env *Envelope) error

// EventConsumer reads exam events from a topic. Malformed messages are logged and
// acked; a handler error nacks the message for redelivery.
type EventConsumer struct {
	subscriber message.Subscriber
	topic      string
	logger     *slog.Logger
}

type ConsumerConfig struct {
	KafkaBrokers  []string
	TopicName     string
	ConsumerGroup string
	Logger        *slog.Logger
}

func NewKafkaEventConsumer(config ConsumerConfig) (*EventConsumer, error) {
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               config.KafkaBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         config.ConsumerGroup,
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}
	return newEventConsumer(subscriber, config.TopicName, config.Logger), nil
}

func newEventConsumer(subscriber message.Subscriber, topic string, logger *slog.Logger) *EventConsumer {
	return &EventConsumer{
		subscriber: subscriber,
		topic:      topic,
		logger:     logger,
	}
}

// Consume blocks until ctx is cancelled or the subscription closes.
func (c *EventConsumer) Consume(ctx context.Context, handle EnvelopeHandler) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg, handle)
		}
	}
}

func (c *EventConsumer) process(ctx context.Context, msg *message.Message, handle EnvelopeHandler) {
	env, err := DecodeEnvelope(msg.Payload)
	if err != nil {
		c.logger.Warn("Dropping malformed event", "message_uuid", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	if err := handle(ctx, env); err != nil {
		c.logger.Error("Event handler failed",
			"event_id", env.ID,
			"event_type", env.Type,
			"error", err)
		msg.Nack()
		return
	}
	msg.Ack()
}

func (c *EventConsumer) Close() error {
	return c.subscriber.Close()
}
