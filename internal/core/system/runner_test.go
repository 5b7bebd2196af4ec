package system

import (
	"testing"
	"time"
)

type recordingSystem struct {
	phase Phase
	name  string
	log   *[]string
}

func (s *recordingSystem) Phase() Phase { return s.phase }

func (s *recordingSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
}

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{phase: PhaseCleanup, name: "cleanup", log: &log})
	r.Register(&recordingSystem{phase: PhaseUpdate, name: "update-a", log: &log})
	r.Register(&recordingSystem{phase: PhaseInput, name: "input", log: &log})
	r.Register(&recordingSystem{phase: PhaseUpdate, name: "update-b", log: &log})

	r.Tick(time.Millisecond)

	want := []string{"input", "update-a", "update-b", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
	if r.Ticks() != 1 {
		t.Fatalf("expected 1 tick, got %d", r.Ticks())
	}
}

func TestRunnerTickPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{phase: PhaseInput, name: "input", log: &log})
	r.Register(&recordingSystem{phase: PhaseUpdate, name: "update", log: &log})

	r.TickPhase(PhaseUpdate, time.Millisecond)

	if len(log) != 1 || log[0] != "update" {
		t.Fatalf("expected only update to run, got %v", log)
	}
	if r.Ticks() != 0 {
		t.Fatalf("TickPhase must not count as a full tick")
	}
}
