// Package requests reads and updates the tickets whose lifecycle is orchestrated.
package requests

import "context"

type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// IsOpen reports whether a request in this status still needs attention.
func (s Status) IsOpen() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusInProgress:
		return true
	default:
		return false
	}
}

// PriorityUrgent is the priority an escalated request is raised to.
const PriorityUrgent = "urgent"

type Request struct {
	ID          string `json:"id"                    validate:"required,max=128"`
	Title       string `json:"title"                 validate:"required,max=200"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"                  validate:"required,max=50"`
	Priority    string `json:"priority"              validate:"required,max=20"`
	Status      Status `json:"status"                validate:"required,oneof=open assigned in_progress resolved"`
	AssigneeID  *int64 `json:"assigneeId,omitempty"`
}

// Repository is the slice of the request store the lifecycle activities need.
type Repository interface {
	Get(ctx context.Context, id string) (*Request, error)
	// RaisePriority sets the priority of id. Setting the same priority twice
	// is a no-op, which keeps escalation safe to retry.
	RaisePriority(ctx context.Context, id, priority string) error
	HealthCheck(ctx context.Context) error
	Close() error
}
