package lifecycle

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Criticality decides what a failed step does to its run.
type Criticality int

const (
	// Critical failures abort the run once the retry policy is exhausted.
	Critical Criticality = iota
	// BestEffort failures are logged and the run continues.
	BestEffort
)

func (c Criticality) String() string {
	switch c {
	case Critical:
		return "critical"
	case BestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("criticality(%d)", int(c))
	}
}

// Policy holds the timeouts and retry limits applied to activity calls.
type Policy struct {
	CriticalTimeout     time.Duration
	NotifyTimeout       time.Duration
	AuditTimeout        time.Duration
	CriticalAttempts    int32
	BestEffortAttempts  int32
	RetryInitial        time.Duration
	RetryCoefficient    float64
	RetryMaximumBackoff time.Duration
}

// DefaultPolicy returns the policy used by RequestLifecycle.
func DefaultPolicy() Policy {
	return Policy{
		CriticalTimeout:     30 * time.Second,
		NotifyTimeout:       30 * time.Second,
		AuditTimeout:        20 * time.Second,
		CriticalAttempts:    5,
		BestEffortAttempts:  3,
		RetryInitial:        time.Second,
		RetryCoefficient:    2,
		RetryMaximumBackoff: time.Minute,
	}
}

func (p Policy) retry(attempts int32) *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    p.RetryInitial,
		BackoffCoefficient: p.RetryCoefficient,
		MaximumInterval:    p.RetryMaximumBackoff,
		MaximumAttempts:    attempts,
	}
}

// Step is one activity invocation tagged with its criticality.
type Step struct {
	Activity    string
	Criticality Criticality
	Options     workflow.ActivityOptions
}

// Steps is the set of activity calls made by one run.
type Steps struct {
	Validate    Step
	Notify      Step
	Audit       Step
	CheckStatus Step
	Escalate    Step
}

// Steps derives the per-activity call settings from p.
func (p Policy) Steps() Steps {
	critical := func(name string) Step {
		return Step{
			Activity:    name,
			Criticality: Critical,
			Options: workflow.ActivityOptions{
				StartToCloseTimeout: p.CriticalTimeout,
				RetryPolicy:         p.retry(p.CriticalAttempts),
			},
		}
	}

	bestEffort := func(name string, timeout time.Duration) Step {
		return Step{
			Activity:    name,
			Criticality: BestEffort,
			Options: workflow.ActivityOptions{
				StartToCloseTimeout: timeout,
				RetryPolicy:         p.retry(p.BestEffortAttempts),
			},
		}
	}

	return Steps{
		Validate:    critical(ValidateActivity),
		Notify:      bestEffort(NotifyActivity, p.NotifyTimeout),
		Audit:       bestEffort(AuditActivity, p.AuditTimeout),
		CheckStatus: critical(CheckStatusActivity),
		Escalate:    critical(EscalateActivity),
	}
}

// Execute runs the step and applies its criticality. It returns an error only
// for a failed critical step, unwrapped so the activity failure stays the
// direct cause of the run failure. A best-effort failure is logged and
// reported through the ok result.
func (s Step) Execute(ctx workflow.Context, result any, args ...any) (ok bool, err error) {
	ctx = workflow.WithActivityOptions(ctx, s.Options)

	err = workflow.ExecuteActivity(ctx, s.Activity, args...).Get(ctx, result)
	if err == nil {
		return true, nil
	}

	if s.Criticality == BestEffort {
		workflow.GetLogger(ctx).Warn("Best-effort step failed, continuing",
			"activity", s.Activity, "error", err)

		return false, nil
	}

	workflow.GetLogger(ctx).Error("Critical step failed", "activity", s.Activity, "error", err)

	return false, err
}
