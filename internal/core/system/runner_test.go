package system

import (
	"testing"
	"time"
)

type recorder struct {
	phase Phase
	name  string
	log   *[]string
}

func (r recorder) Phase() Phase            { return r.phase }
func (r recorder) Update(dt time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{PhaseStats, "stats", &log})
	r.Register(recorder{PhaseStream, "stream-a", &log})
	r.Register(recorder{PhaseDispatch, "dispatch", &log})
	r.Register(recorder{PhaseStream, "stream-b", &log})

	r.Tick(time.Millisecond)
	want := []string{"dispatch", "stream-a", "stream-b", "stats"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
	if r.Ticks() != 1 {
		t.Fatalf("ticks = %d", r.Ticks())
	}

	log = log[:0]
	r.TickPhase(PhaseStream, time.Millisecond)
	if len(log) != 2 || log[0] != "stream-a" || log[1] != "stream-b" {
		t.Fatalf("phase tick = %v", log)
	}
	if r.Ticks() != 1 {
		t.Fatalf("TickPhase counted as a full tick")
	}
}
