package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/loop"
)

var start = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func runCycle(t *testing.T, extra time.Duration, ms ...Metric) *loop.Runner {
	t.Helper()
	clock := loop.NewManualClock(start)
	r := loop.New(clock, &loop.HeldTilt{}, loop.FixedSelector(150), nil, loop.DefaultOptions())
	for _, m := range ms {
		r.AddObserver(m)
	}
	r.Start()
	for i := 0; i < 5000 && r.Controller().State() == cycle.Running; i++ {
		clock.Advance(r.Controller().Interval() + extra)
		r.Poll(clock.Now())
	}
	if r.Controller().State() != cycle.Finished {
		t.Fatal("cycle did not finish")
	}
	return r
}

func TestDefaultsOnExactClock(t *testing.T) {
	ms := Defaults()
	r := runCycle(t, 0, ms...)
	report := Report(ms)

	if report["mass_drift"] != 0 {
		t.Errorf("expected no mass drift, got %v", report["mass_drift"])
	}
	if report["step_jitter_ms"] != 0 {
		t.Errorf("expected no jitter on an exact clock, got %v", report["step_jitter_ms"])
	}

	c := r.Controller()
	want := float64(c.Steps()) * float64(c.Interval()) / float64(c.Duration())
	if math.Abs(report["cycle_ratio"]-want) > 1e-9 {
		t.Errorf("expected cycle ratio %v, got %v", want, report["cycle_ratio"])
	}
	if report["cycle_ratio"] <= 0 || report["cycle_ratio"] > 1.6 {
		t.Errorf("implausible cycle ratio %v", report["cycle_ratio"])
	}
}

func TestStepJitterMeasuresLateSteps(t *testing.T) {
	j := NewStepJitter()
	runCycle(t, 2*time.Millisecond, j)
	if math.Abs(j.Value()-2) > 1e-9 {
		t.Errorf("expected 2ms jitter, got %v", j.Value())
	}

	j.Reset()
	if j.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestResetClearsEverything(t *testing.T) {
	ms := Defaults()
	runCycle(t, 0, ms...)
	for _, m := range ms {
		m.Reset()
		if m.Value() != 0 {
			t.Errorf("%s: expected zero after reset, got %v", m.Name(), m.Value())
		}
	}
}
