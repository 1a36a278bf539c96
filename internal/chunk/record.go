package chunk

import (
	"time"

	"github.com/hexworld/engine/internal/render"
)

// State is the streaming lifecycle of a chunk. Transitions only move forward,
// except a failed build which returns Streaming to Poked.
type State uint8

const (
	Poked     State = iota // record exists, nothing requested
	Queued                 // waiting for a build slot
	Streaming              // build job in flight
	Ready                  // geometry attached
)

var stateNames = [...]string{"poked", "queued", "streaming", "ready"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Ticket identifies the build job attached to a Streaming chunk. Results
// carrying any other generation are stale and get dropped.
type Ticket struct {
	Gen     uint64
	Started time.Time
}

// Result is what a finished build hands back to the registry.
type Result struct {
	OK          bool
	Mesh        *render.Geometry
	Decorations []render.Decoration
	HasWater    bool
	BuildMs     float64
}

// Record is one chunk's registry entry. Only the registry mutates State,
// Job, Mesh, the proxies and Visible.
type Record struct {
	Index Index
	State State

	// Job is non-nil exactly while State == Streaming.
	Job *Ticket

	Mesh        *render.Geometry
	Decorations []render.Decoration
	HasWater    bool
	BuildMs     float64

	// Proxy and DecorationProxy are non-zero only while Ready and Visible.
	Proxy           render.Handle
	DecorationProxy render.Handle
	Visible         bool

	InView     bool
	LookAhead  bool
	LastInView time.Time

	// Evicted marks a chunk nuked while its job was in flight. The record
	// stays registered until the job's result arrives and is thrown away.
	Evicted bool

	Failures int
}

// InFlight reports whether a build job references this record.
func (r *Record) InFlight() bool { return r.State == Streaming }
