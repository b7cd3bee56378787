package lifecycle

import (
	"errors"
	"time"

	"github.com/fastorc/requestshub/pkg/audit"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Lifecycle is the request lifecycle workflow with its activity policy.
type Lifecycle struct {
	Policy Policy
}

// NewLifecycle returns the workflow bound to policy.
func NewLifecycle(policy Policy) *Lifecycle {
	return &Lifecycle{Policy: policy}
}

// RequestLifecycle runs the lifecycle under DefaultPolicy.
func RequestLifecycle(ctx workflow.Context, in LifecycleInput) (*LifecycleResult, error) {
	return NewLifecycle(DefaultPolicy()).Run(ctx, in)
}

// Run sequences the lifecycle of one request:
//
//	Validating -> Notifying -> [AwaitingSla] -> CheckingStatus -> [Escalating] -> Completed
//
// Everything with side effects goes through activities; the body reads time
// only through workflow.Now and sleeps only through the durable timer.
func (l *Lifecycle) Run(ctx workflow.Context, in LifecycleInput) (*LifecycleResult, error) {
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)
	steps := l.Policy.Steps()

	result := &LifecycleResult{RequestID: in.RequestID, Phase: PhaseValidating}

	err := workflow.SetQueryHandler(ctx, PhaseQuery, func() (Phase, error) {
		return result.Phase, nil
	})
	if err != nil {
		return nil, err
	}

	enter := func(next Phase) {
		logger.Info("Lifecycle phase", "requestId", in.RequestID, "from", result.Phase, "to", next)
		result.Phase = next
	}

	for _, warning := range in.Warnings {
		logger.Warn("Lifecycle input coerced", "requestId", in.RequestID, "warning", warning)
	}

	if err := in.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidLifecycleInput", err)
	}

	if _, err := steps.Validate.Execute(ctx, nil, in.RequestID); err != nil {
		return nil, err
	}

	enter(PhaseNotifying)

	_, _ = steps.Notify.Execute(ctx, nil, NotifyInput{
		Channel:    ChannelCreated,
		Message:    "Created request " + in.RequestID,
		RequestID:  in.RequestID,
		WorkflowID: info.WorkflowExecution.ID,
		RunID:      info.WorkflowExecution.RunID,
	})

	result.CreatedAuditID = l.recordAudit(ctx, steps.Audit, in.RequestID, audit.EventCreated,
		map[string]any{"slaMinutes": in.SLAMinutes})

	if in.SLAMinutes > 0 {
		enter(PhaseAwaitingSla)

		if err := workflow.Sleep(ctx, time.Duration(in.SLAMinutes)*time.Minute); err != nil {
			return nil, err
		}
	}

	enter(PhaseCheckingStatus)

	var stillOpen bool
	if _, err := steps.CheckStatus.Execute(ctx, &stillOpen, in.RequestID); err != nil {
		return nil, err
	}

	result.StillOpen = stillOpen

	if stillOpen {
		enter(PhaseEscalating)

		_, err := steps.Escalate.Execute(ctx, nil, EscalateInput{
			RequestID:  in.RequestID,
			Reason:     EscalationReasonSLA,
			WorkflowID: info.WorkflowExecution.ID,
			RunID:      info.WorkflowExecution.RunID,
		})
		if err != nil {
			return nil, err
		}

		result.Escalated = true
		result.EscalatedAuditID = l.recordAudit(ctx, steps.Audit, in.RequestID, audit.EventEscalated,
			map[string]any{"reason": EscalationReasonSLA})
	}

	enter(PhaseCompleted)

	return result, nil
}

// recordAudit writes one audit event and returns its id, or "" when the
// write did not succeed. Never fails the run.
func (l *Lifecycle) recordAudit(
	ctx workflow.Context,
	step Step,
	requestID string,
	eventType audit.EventType,
	payload map[string]any,
) string {
	info := workflow.GetInfo(ctx)

	var res audit.Result

	ok, _ := step.Execute(ctx, &res, audit.WriteRequest{
		RequestID:  requestID,
		EventType:  eventType,
		Payload:    payload,
		WorkflowID: info.WorkflowExecution.ID,
		RunID:      info.WorkflowExecution.RunID,
		OccurredAt: workflow.Now(ctx),
	})
	if !ok {
		return ""
	}

	if !res.OK {
		workflow.GetLogger(ctx).Warn("Audit event not recorded",
			"requestId", requestID, "eventType", eventType, "reason", res.Reason)

		return ""
	}

	return res.ID
}

// IsInvalidInput reports whether a run failed because its input was unusable.
func IsInvalidInput(err error) bool {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type() == "InvalidLifecycleInput"
	}

	return false
}
