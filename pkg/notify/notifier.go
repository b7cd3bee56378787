// Package notify delivers lifecycle notifications to external channels.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownChannel is returned for a message without a deliverable channel.
var ErrUnknownChannel = errors.New("unknown notification channel")

// Message is one notification. Key is stable across retries of the same
// activity so consumers can drop duplicates.
type Message struct {
	Key        string    `json:"key"`
	Channel    string    `json:"channel"`
	Text       string    `json:"message"`
	RequestID  string    `json:"requestId"`
	WorkflowID string    `json:"workflowId,omitempty"`
	RunID      string    `json:"runId,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Routes maps the logical channel names used by the workflow to concrete
// destinations (topics, Redis channels, Slack channel names).
type Routes map[string]string

// Resolve returns the destination of channel, or the channel itself when no
// route is configured.
func (r Routes) Resolve(channel string) string {
	if dest, ok := r[channel]; ok && dest != "" {
		return dest
	}

	return channel
}
