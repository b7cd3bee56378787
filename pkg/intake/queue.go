package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fastorc/requestshub/pkg/lifecycle"
	redis "github.com/redis/go-redis/v9"
)

// QueueConsumer pops creation events from a Redis list. Events that cannot be
// decoded or whose handler fails are moved to "<queue>:failed".
type QueueConsumer struct {
	Queue string

	client  redis.UniversalClient
	handler Handler
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewQueueConsumer(client redis.UniversalClient, queue string, handler Handler, logger *slog.Logger) *QueueConsumer {
	if queue == "" {
		queue = DefaultQueue
	}

	return &QueueConsumer{
		Queue:   queue,
		client:  client,
		handler: handler,
		stopCh:  make(chan struct{}),
		logger: logger.With(
			"module", "queue_intake",
			"queue", queue,
		),
	}
}

// FailedQueue is the list holding events that could not be processed.
func (c *QueueConsumer) FailedQueue() string {
	return c.Queue + ":failed"
}

func (c *QueueConsumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Starting queue intake")

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *QueueConsumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue intake stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue intake")

			return
		default:
			err := c.processMessage(ctx)
			if err != nil && ctx.Err() == nil {
				c.logger.ErrorContext(ctx, "Error processing creation event", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *QueueConsumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, 1*time.Second, c.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop creation event: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	raw := result[1]

	in, err := Decode([]byte(raw))
	if err != nil {
		c.logger.WarnContext(ctx, "Dropping malformed creation event", "message", raw, "error", err)

		return c.deadLetter(ctx, raw)
	}

	for _, warning := range in.Warnings {
		c.logger.WarnContext(ctx, "Creation event coerced", "requestId", in.RequestID, "warning", warning)
	}

	if err := c.handler(ctx, in); err != nil {
		c.logger.ErrorContext(ctx, "Failed to start lifecycle", "requestId", in.RequestID, "error", err)

		return c.deadLetter(ctx, raw)
	}

	return nil
}

func (c *QueueConsumer) deadLetter(ctx context.Context, raw string) error {
	if err := c.client.RPush(ctx, c.FailedQueue(), raw).Err(); err != nil {
		return fmt.Errorf("failed to move event to %s: %w", c.FailedQueue(), err)
	}

	return nil
}

// Stop waits for the consumer loop to exit. It does not close the client.
func (c *QueueConsumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping queue intake")

	c.once.Do(func() { close(c.stopCh) })
	c.wg.Wait()

	return nil
}

// Enqueue pushes a creation event onto queue.
func Enqueue(ctx context.Context, client redis.UniversalClient, queue string, in lifecycle.LifecycleInput) error {
	if queue == "" {
		queue = DefaultQueue
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	return client.RPush(ctx, queue, payload).Err()
}
