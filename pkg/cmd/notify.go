package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/fastorc/requestshub/pkg/channels/gochannel"
	"github.com/fastorc/requestshub/pkg/channels/kafka"
	"github.com/fastorc/requestshub/pkg/notify"
	"github.com/redis/go-redis/v9"
)

// NotifierOptions selects and configures the notification backend.
type NotifierOptions struct {
	// Backend is one of log, gochannel, kafka, redis.
	Backend      string
	KafkaBrokers []string
	RedisURL     string
	Routes       notify.Routes
}

func NewNotifier(opts NotifierOptions, logger *slog.Logger) (notify.Notifier, error) {
	switch opts.Backend {
	case "", "log":
		return notify.NewLogNotifier(logger.With("module", "notify"), opts.Routes), nil
	case "gochannel":
		return notify.NewWatermillNotifier(gochannel.CreateChannel(watermill.NewSlogLogger(logger)), opts.Routes), nil
	case "kafka":
		pub, err := kafka.CreatePublisher(opts.KafkaBrokers, watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}

		return notify.NewWatermillNotifier(pub, opts.Routes), nil
	case "redis":
		client, err := NewRedisClient(opts.RedisURL)
		if err != nil {
			return nil, err
		}

		return notify.NewRedisNotifier(client, "notifications:", opts.Routes), nil
	default:
		return nil, fmt.Errorf("unsupported notifier backend: %s", opts.Backend)
	}
}

// NewRedisClient parses a redis:// URL into a client. No connection is made.
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return redis.NewClient(opts), nil
}
