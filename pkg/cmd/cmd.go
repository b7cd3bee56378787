// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/fastorc/requestshub/pkg/log"
	"go.temporal.io/sdk/client"
)

// TemporalOptions holds the orchestration endpoint settings.
type TemporalOptions struct {
	Address   string
	Namespace string
	TaskQueue string
}

// NewTemporalClient dials the orchestration service.
func NewTemporalClient(ctx context.Context, opts TemporalOptions, logger *slog.Logger) (client.Client, error) {
	c, err := client.DialContext(ctx, client.Options{
		HostPort:  opts.Address,
		Namespace: opts.Namespace,
		Logger:    log.Temporal(logger.With("module", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal at %s: %w", opts.Address, err)
	}

	return c, nil
}

// TaskQueueOrDefault returns the configured queue or lifecycle.TaskQueue.
func (o TemporalOptions) TaskQueueOrDefault() string {
	if o.TaskQueue == "" {
		return lifecycle.TaskQueue
	}

	return o.TaskQueue
}
