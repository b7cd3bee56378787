package lifecycle

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// Registrar is the registration surface of a Temporal worker.
type Registrar interface {
	RegisterWorkflowWithOptions(w any, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a any, options activity.RegisterOptions)
}

// Register adds the lifecycle workflow and its five activities to r under
// their fixed names.
func Register(r Registrar, lc *Lifecycle, acts *Activities) {
	r.RegisterWorkflowWithOptions(lc.Run, workflow.RegisterOptions{Name: WorkflowName})

	activities := map[string]any{
		ValidateActivity:    acts.ValidateRequest,
		NotifyActivity:      acts.Notify,
		CheckStatusActivity: acts.CheckStatus,
		EscalateActivity:    acts.Escalate,
		AuditActivity:       acts.RecordAuditEvent,
	}

	for name, fn := range activities {
		r.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
	}
}
