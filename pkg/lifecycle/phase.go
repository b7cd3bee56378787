package lifecycle

// Phase is the position of a run in its lifecycle.
type Phase string

const (
	PhaseValidating     Phase = "Validating"
	PhaseNotifying      Phase = "Notifying"
	PhaseAwaitingSla    Phase = "AwaitingSla"
	PhaseCheckingStatus Phase = "CheckingStatus"
	PhaseEscalating     Phase = "Escalating"
	PhaseCompleted      Phase = "Completed"
)

var phaseOrder = map[Phase]int{
	PhaseValidating:     0,
	PhaseNotifying:      1,
	PhaseAwaitingSla:    2,
	PhaseCheckingStatus: 3,
	PhaseEscalating:     4,
	PhaseCompleted:      5,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]

	return ok
}

// Before reports whether p comes strictly before q. Unknown phases sort last.
func (p Phase) Before(q Phase) bool {
	pi, ok := phaseOrder[p]
	if !ok {
		return false
	}

	qi, ok := phaseOrder[q]
	if !ok {
		return true
	}

	return pi < qi
}

// Terminal reports whether no further transition follows p.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted
}
