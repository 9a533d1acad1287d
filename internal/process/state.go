package process

import "time"

// Phase is the lifecycle phase of a managed process.
type Phase string

// Process phases.
const (
	PhaseStarting Phase = "starting" // Launched, readiness not seen yet
	PhaseReady    Phase = "ready"    // Readiness marker seen
	PhaseStopping Phase = "stopping" // Shutdown in progress
	PhaseStopped  Phase = "stopped"  // Exit confirmed and watcher joined
	PhaseFailed   Phase = "failed"   // Could not be launched
)

// transitions lists the phases reachable from each phase.
// Phases only move forward; stopped and failed are terminal.
var transitions = map[Phase][]Phase{
	PhaseStarting: {PhaseReady, PhaseStopping, PhaseFailed},
	PhaseReady:    {PhaseStopping},
	PhaseStopping: {PhaseStopped},
}

// CanTransition reports whether a process may move from one phase to another.
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return len(transitions[p]) == 0
}

// Status is a point-in-time view of a managed process.
type Status struct {
	Name      string
	Phase     Phase
	PID       int
	Address   string
	StartedAt time.Time
	ReadyAt   time.Time
	ExitCode  int
	Exited    bool
	LastError error
}
