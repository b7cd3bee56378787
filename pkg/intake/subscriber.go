package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/fastorc/requestshub/pkg/lifecycle"
)

// SubscriberConsumer reads creation events from a watermill topic (Kafka or
// GoChannel). Malformed events are acked and dropped; handler failures are
// nacked so the subscriber redelivers them.
type SubscriberConsumer struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler
	logger     *slog.Logger
}

func NewSubscriberConsumer(sub message.Subscriber, topic string, handler Handler, logger *slog.Logger) *SubscriberConsumer {
	if topic == "" {
		topic = Topic
	}

	return &SubscriberConsumer{
		subscriber: sub,
		topic:      topic,
		handler:    handler,
		logger:     logger.With("module", "topic_intake", "topic", topic),
	}
}

// Start subscribes and processes messages until ctx is done or the
// subscriber is closed.
func (c *SubscriberConsumer) Start(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}

	c.logger.InfoContext(ctx, "Starting topic intake")

	go func() {
		for msg := range messages {
			c.process(ctx, msg)
		}

		c.logger.InfoContext(ctx, "Topic intake stopped")
	}()

	return nil
}

func (c *SubscriberConsumer) process(ctx context.Context, msg *message.Message) {
	in, err := Decode(msg.Payload)
	if err != nil {
		c.logger.WarnContext(ctx, "Dropping malformed creation event", "uuid", msg.UUID, "error", err)
		msg.Ack()

		return
	}

	if err := c.handler(ctx, in); err != nil {
		c.logger.ErrorContext(ctx, "Failed to start lifecycle", "requestId", in.RequestID, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}

func (c *SubscriberConsumer) Close() error {
	return c.subscriber.Close()
}

// Publish sends a creation event on topic.
func Publish(publisher message.Publisher, topic string, in lifecycle.LifecycleInput) error {
	if topic == "" {
		topic = Topic
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(RequestIDMetadataKey, in.RequestID)

	return publisher.Publish(topic, msg)
}
