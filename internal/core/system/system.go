package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseDispatch Phase = iota // 0: deliver last tick's events
	PhaseFinalize              // 1: finalize completed build jobs
	PhaseStream                // 2: view-driven residency update
	PhasePersist               // 3: periodic snapshot / table save
	PhaseStats                 // 4: counters and diagnostics
)

var phaseNames = [...]string{"dispatch", "finalize", "stream", "persist", "stats"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
