package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastorc/requestshub/pkg/audit"
	"github.com/fastorc/requestshub/pkg/notify"
	"github.com/fastorc/requestshub/pkg/requests"
	"github.com/go-playground/validator/v10"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// AuditWriter records audit events. *audit.Client implements it.
type AuditWriter interface {
	Write(ctx context.Context, req audit.WriteRequest) audit.Result
}

// NotifyInput is the argument of the Notify activity.
type NotifyInput struct {
	Channel    string `json:"channel"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId"`
	WorkflowID string `json:"workflowId,omitempty"`
	RunID      string `json:"runId,omitempty"`
}

// EscalateInput is the argument of the Escalate activity.
type EscalateInput struct {
	RequestID  string `json:"requestId"`
	Reason     string `json:"reason,omitempty"`
	WorkflowID string `json:"workflowId,omitempty"`
	RunID      string `json:"runId,omitempty"`
}

// Activities holds the collaborators of the lifecycle activities. Every
// activity is safe to run more than once for the same input.
type Activities struct {
	// Requests is optional. Without it validation only checks the id and
	// CheckStatus answers DefaultStillOpen.
	Requests requests.Repository
	Notifier notify.Notifier
	Audit    AuditWriter

	DefaultStillOpen bool

	logger   *slog.Logger
	validate *validator.Validate
}

// NewActivities wires the activity set.
func NewActivities(
	repo requests.Repository,
	notifier notify.Notifier,
	auditWriter AuditWriter,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}

	return &Activities{
		Requests:         repo,
		Notifier:         notifier,
		Audit:            auditWriter,
		DefaultStillOpen: true,
		logger:           logger.With("module", "lifecycle_activities"),
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateRequest fails permanently when the request is unknown or malformed.
// Store outages are returned as-is so the activity is retried.
func (a *Activities) ValidateRequest(ctx context.Context, requestID string) error {
	if err := (LifecycleInput{RequestID: requestID}).Validate(); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), "InvalidRequest", err)
	}

	if a.Requests == nil {
		a.logger.InfoContext(ctx, "Validated request id", "requestId", requestID)

		return nil
	}

	req, err := a.Requests.Get(ctx, requestID)
	if err != nil {
		if requests.IsRequestNotFound(err) {
			return temporal.NewNonRetryableApplicationError(err.Error(), "RequestNotFound", err)
		}

		return fmt.Errorf("failed to load request %s: %w", requestID, err)
	}

	if err := a.validate.StructCtx(ctx, req); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), "InvalidRequest", err)
	}

	a.logger.InfoContext(ctx, "Validated request", "requestId", requestID, "status", req.Status)

	return nil
}

// Notify sends one message. Its key is derived from the activity execution so
// a retried delivery carries the same key.
func (a *Activities) Notify(ctx context.Context, in NotifyInput) error {
	if a.Notifier == nil {
		a.logger.WarnContext(ctx, "No notifier configured, dropping notification", "channel", in.Channel)

		return nil
	}

	msg := notify.Message{
		Key:        notificationKey(ctx, in.RunID),
		Channel:    in.Channel,
		Text:       in.Message,
		RequestID:  in.RequestID,
		WorkflowID: in.WorkflowID,
		RunID:      in.RunID,
		SentAt:     activity.GetInfo(ctx).StartedTime.UTC(),
	}

	if err := a.Notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to notify %s: %w", in.Channel, err)
	}

	return nil
}

// CheckStatus reports whether the request still needs attention.
func (a *Activities) CheckStatus(ctx context.Context, requestID string) (bool, error) {
	if a.Requests == nil {
		return a.DefaultStillOpen, nil
	}

	req, err := a.Requests.Get(ctx, requestID)
	if err != nil {
		if requests.IsRequestNotFound(err) {
			return false, temporal.NewNonRetryableApplicationError(err.Error(), "RequestNotFound", err)
		}

		return false, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}

	open := req.Status.IsOpen()
	a.logger.InfoContext(ctx, "Checked request status", "requestId", requestID, "status", req.Status, "stillOpen", open)

	return open, nil
}

// Escalate raises the request to urgent and tells the escalation channel.
// Setting the priority is idempotent; the notice is keyed like Notify.
func (a *Activities) Escalate(ctx context.Context, in EscalateInput) error {
	if a.Requests != nil {
		if err := a.Requests.RaisePriority(ctx, in.RequestID, requests.PriorityUrgent); err != nil {
			if requests.IsRequestNotFound(err) {
				return temporal.NewNonRetryableApplicationError(err.Error(), "RequestNotFound", err)
			}

			return fmt.Errorf("failed to raise priority of %s: %w", in.RequestID, err)
		}
	}

	a.logger.InfoContext(ctx, "Escalated request", "requestId", in.RequestID, "reason", in.Reason)

	return a.Notify(ctx, NotifyInput{
		Channel:    ChannelEscalations,
		Message:    fmt.Sprintf("Request %s escalated: %s", in.RequestID, in.Reason),
		RequestID:  in.RequestID,
		WorkflowID: in.WorkflowID,
		RunID:      in.RunID,
	})
}

// RecordAuditEvent writes one audit event. It never returns an error; the
// outcome is carried in the result.
func (a *Activities) RecordAuditEvent(ctx context.Context, req audit.WriteRequest) (audit.Result, error) {
	if a.Audit == nil {
		return audit.Result{OK: false, Reason: audit.ReasonNotConfigured}, nil
	}

	res := a.Audit.Write(ctx, req)
	if !res.OK {
		a.logger.WarnContext(ctx, "Audit event not written",
			"requestId", req.RequestID, "eventType", req.EventType, "reason", res.Reason)
	}

	return res, nil
}

func notificationKey(ctx context.Context, runID string) string {
	info := activity.GetInfo(ctx)
	if runID == "" {
		runID = info.WorkflowExecution.RunID
	}

	return runID + "-" + info.ActivityID
}
