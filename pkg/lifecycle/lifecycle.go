// Package lifecycle runs a request through its bounded lifecycle on Temporal:
// validate, notify, wait out the SLA, check the status and escalate when the
// request is still open. Every transition is recorded as an audit event.
package lifecycle

const (
	// WorkflowName is the registered workflow type.
	WorkflowName = "RequestLifecycle"

	// TaskQueue is shared by the starters and the worker.
	TaskQueue = "requests-hub"

	// PhaseQuery returns the current Phase of a run.
	PhaseQuery = "current-phase"

	ValidateActivity    = "ValidateRequest"
	NotifyActivity      = "Notify"
	CheckStatusActivity = "CheckStatus"
	EscalateActivity    = "Escalate"
	AuditActivity       = "RecordAuditEvent"

	// ChannelCreated receives the "created" notification.
	ChannelCreated = "slack"
	// ChannelEscalations receives escalation notices.
	ChannelEscalations = "escalations"

	// DefaultSLAMinutes applies when a start carries no SLA.
	DefaultSLAMinutes = 120

	// MaxSLAMinutes is the longest SLA a run waits out (one year).
	MaxSLAMinutes = 525600

	// EscalationReasonSLA is recorded on escalations caused by an expired SLA.
	EscalationReasonSLA = "sla-breach"
)

// WorkflowID returns the id of the lifecycle run of requestID. Using it as the
// workflow id makes the substrate reject a second concurrent run.
func WorkflowID(requestID string) string {
	return "request-" + requestID
}
