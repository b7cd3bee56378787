// Package intake turns request-creation events from queues and topics into
// lifecycle starts.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fastorc/requestshub/pkg/lifecycle"
)

const (
	// DefaultQueue is the Redis list creation events are pushed to.
	DefaultQueue = "requests:created"

	// Topic carries creation events on the message bus.
	Topic = "requests.created"

	RequestIDMetadataKey = "request_id"
)

// Handler processes one creation event.
type Handler func(ctx context.Context, in lifecycle.LifecycleInput) error

// Starter starts lifecycle runs. *lifecycle.Starter implements it.
type Starter interface {
	Start(ctx context.Context, requestID string, slaMinutes int) (lifecycle.StartResult, error)
}

// StartHandler returns a Handler starting one lifecycle run per event.
// Duplicate events for a request in progress attach to the running lifecycle.
func StartHandler(starter Starter, logger *slog.Logger) Handler {
	return func(ctx context.Context, in lifecycle.LifecycleInput) error {
		result, err := starter.Start(ctx, in.RequestID, in.SLAMinutes)
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "Lifecycle start from intake",
			"requestId", in.RequestID,
			"workflowId", result.WorkflowID,
			"runId", result.RunID,
			"alreadyStarted", result.AlreadyStarted,
		)

		return nil
	}
}

// Decode parses a creation event. The payload may use any of the shapes
// accepted by lifecycle.LifecycleInput.
func Decode(payload []byte) (lifecycle.LifecycleInput, error) {
	var in lifecycle.LifecycleInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return in, fmt.Errorf("failed to decode creation event: %w", err)
	}

	if err := in.Validate(); err != nil {
		return in, fmt.Errorf("invalid creation event: %w", err)
	}

	return in, nil
}
