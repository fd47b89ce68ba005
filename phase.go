package gotap

// JobPhase is the execution phase of a UWS job as reported by the service.
type JobPhase int

// Job phases defined by the UWS recommendation.
const (
	PhasePending JobPhase = iota
	PhaseQueued
	PhaseExecuting
	PhaseCompleted
	PhaseError
	PhaseAborted
	// PhaseHeld is when a job is accepted but the service refuses to queue
	// it until the owner posts PHASE=RUN again.
	PhaseHeld
	PhaseSuspended
	PhaseArchived
	PhaseUnknown
)

func (jp JobPhase) String() string {
	return [...]string{"PENDING", "QUEUED", "EXECUTING", "COMPLETED",
		"ERROR", "ABORTED", "HELD", "SUSPENDED", "ARCHIVED", "UNKNOWN"}[jp]
}

// isTerminal reports whether no further phase transition can occur.
func (jp JobPhase) isTerminal() bool {
	switch jp {
	case PhaseCompleted, PhaseError, PhaseAborted, PhaseArchived:
		return true
	default:
		return false
	}
}

func (jp JobPhase) isFailure() bool {
	switch jp {
	case PhaseError, PhaseAborted:
		return true
	default:
		return false
	}
}

var strJobPhaseMap = map[string]JobPhase{
	"PENDING": PhasePending, "QUEUED": PhaseQueued,
	"EXECUTING": PhaseExecuting, "COMPLETED": PhaseCompleted,
	"ERROR": PhaseError, "ABORTED": PhaseAborted,
	"HELD": PhaseHeld, "SUSPENDED": PhaseSuspended,
	"ARCHIVED": PhaseArchived, "UNKNOWN": PhaseUnknown,
}

func strToJobPhase(in string) JobPhase {
	if phase, ok := strJobPhaseMap[in]; ok {
		return phase
	}
	return PhaseUnknown
}
