// Package audit records request lifecycle transitions as immutable, idempotent
// documents in a document store and reads them back for the API layer.
package audit

import (
	"fmt"
	"time"
)

// EventType names a lifecycle transition. The set is open: unknown types are
// stored as-is, recognized types get their payload checked against a schema.
type EventType string

const (
	EventCreated   EventType = "created"
	EventEscalated EventType = "escalated"
)

// SchemaVersion is stamped on every document so consumers can tell which set
// of recognized payload fields applies.
const SchemaVersion = 1

// Event is a single audit document. It is never mutated after it is written,
// except by an idempotent overwrite carrying the same id.
type Event struct {
	ID            string         `json:"id"                   bson:"_id"`
	RequestID     string         `json:"requestId"            bson:"requestId"`
	WorkflowID    string         `json:"workflowId,omitempty" bson:"workflowId,omitempty"`
	RunID         string         `json:"runId,omitempty"      bson:"runId,omitempty"`
	EventType     EventType      `json:"eventType"            bson:"eventType"`
	Timestamp     time.Time      `json:"timestamp"            bson:"timestamp"`
	SchemaVersion int            `json:"schemaVersion"        bson:"schemaVersion"`
	Payload       map[string]any `json:"payload"              bson:"payload"`
}

// WriteRequest is the input of Client.Write and of the audit activity.
type WriteRequest struct {
	RequestID  string         `json:"requestId"`
	EventType  EventType      `json:"eventType"`
	Payload    map[string]any `json:"payload,omitempty"`
	WorkflowID string         `json:"workflowId,omitempty"`
	RunID      string         `json:"runId,omitempty"`
	// OccurredAt is the transition time. When the caller is a workflow it
	// passes its deterministic clock so a re-run activity writes identical
	// content. Zero means "now".
	OccurredAt time.Time `json:"occurredAt,omitempty"`
}

// Result reports the outcome of a write. Writes never return errors.
type Result struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ReasonNotConfigured is the Result.Reason used when no store is available.
const ReasonNotConfigured = "no-store"

// EventID derives the idempotency key of an event. A run id wins over a
// workflow id; without either the id falls back to a time and random suffix,
// which makes the write non-idempotent.
func EventID(requestID string, eventType EventType, workflowID, runID string, at time.Time, suffix string) string {
	switch {
	case runID != "":
		return fmt.Sprintf("%s-%s", runID, eventType)
	case workflowID != "":
		return fmt.Sprintf("%s-%s", workflowID, eventType)
	default:
		return fmt.Sprintf("%s-%d-%s", requestID, at.Unix(), suffix)
	}
}
