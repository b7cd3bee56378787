package cmd

import (
	"context"
	"log/slog"

	"github.com/fastorc/requestshub/pkg/requests"
)

// NewRequestRepository opens the request store. An empty URL yields nil:
// the activities then fall back to their defaults.
func NewRequestRepository(ctx context.Context, databaseURL string, logger *slog.Logger) (requests.Repository, error) {
	switch {
	case databaseURL == "":
		return nil, nil
	case databaseURL == "memory://":
		return requests.NewMemoryRepository(), nil
	default:
		return requests.NewPostgresRepository(ctx, logger, databaseURL)
	}
}
