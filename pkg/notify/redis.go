package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes notifications on Redis pub/sub channels named
// "<prefix><channel>".
type RedisNotifier struct {
	client redis.UniversalClient
	prefix string
	routes Routes
}

func NewRedisNotifier(client redis.UniversalClient, prefix string, routes Routes) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix, routes: routes}
}

func (n *RedisNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Channel == "" {
		return ErrUnknownChannel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	err = n.client.Publish(ctx, n.prefix+n.routes.Resolve(msg.Channel), payload).Err()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
