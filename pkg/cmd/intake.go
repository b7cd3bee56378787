package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/fastorc/requestshub/pkg/channels/kafka"
	"github.com/fastorc/requestshub/pkg/intake"
)

// Runner is a started background consumer.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// IntakeOptions selects the source of creation events.
type IntakeOptions struct {
	// Kind is one of none, redis, kafka.
	Kind string
	// Queue is the Redis list or the topic name. Empty selects the default.
	Queue        string
	RedisURL     string
	KafkaBrokers []string
}

// NewIntake returns the configured consumer, or nil for "none".
func NewIntake(opts IntakeOptions, handler intake.Handler, logger *slog.Logger) (Runner, error) {
	switch opts.Kind {
	case "", "none":
		return nil, nil
	case "redis":
		client, err := NewRedisClient(opts.RedisURL)
		if err != nil {
			return nil, err
		}

		return &closingRunner{
			Runner: intake.NewQueueConsumer(client, opts.Queue, handler, logger),
			close:  client.Close,
		}, nil
	case "kafka":
		sub, err := kafka.CreateSubscriber(opts.KafkaBrokers, watermill.NewSlogLogger(logger), "requestshub")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
		}

		return subscriberRunner{intake.NewSubscriberConsumer(sub, opts.Queue, handler, logger)}, nil
	default:
		return nil, fmt.Errorf("unsupported intake: %s", opts.Kind)
	}
}

type closingRunner struct {
	Runner

	close func() error
}

func (r *closingRunner) Stop(ctx context.Context) error {
	if err := r.Runner.Stop(ctx); err != nil {
		return err
	}

	return r.close()
}

type subscriberRunner struct {
	*intake.SubscriberConsumer
}

func (r subscriberRunner) Stop(context.Context) error {
	return r.Close()
}
