// Package metrics holds loop observers that score how faithfully a run kept
// time and conserved sand.
package metrics

import (
	"math"
	"time"

	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/loop"
	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/sand"
)

type Metric interface {
	loop.Observer
	Name() string
	Value() float64
	Reset()
}

func Defaults() []Metric {
	return []Metric{NewMassDrift(), NewCycleRatio(), NewStepJitter()}
}

func Report(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// MassDrift is the largest deviation from 64 grains seen after any step.
// Anything but zero is a bug in the motion engine.
type MassDrift struct {
	name     string
	maxDrift int
	samples  int
}

func NewMassDrift() *MassDrift { return &MassDrift{name: "mass_drift"} }

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) OnCycle(time.Time, *cycle.Controller, string) {}

func (m *MassDrift) OnStep(_ time.Time, _ sand.Event, c *cycle.Controller) {
	d := c.Session().Mass() - matrix.Cells
	if d < 0 {
		d = -d
	}
	m.maxDrift = max(m.maxDrift, d)
	m.samples++
}

func (m *MassDrift) Value() float64 { return float64(m.maxDrift) }

func (m *MassDrift) Reset() {
	m.maxDrift = 0
	m.samples = 0
}

// CycleRatio is the mean of actual drain time over selected duration across
// completed cycles. The step interval assumes ten steps per grain, so the
// ratio shows how far the real grain paths stray from that.
type CycleRatio struct {
	name   string
	sum    float64
	cycles int
}

func NewCycleRatio() *CycleRatio { return &CycleRatio{name: "cycle_ratio"} }

func (r *CycleRatio) Name() string { return r.name }

func (r *CycleRatio) OnCycle(time.Time, *cycle.Controller, string) {}

func (r *CycleRatio) OnStep(now time.Time, ev sand.Event, c *cycle.Controller) {
	if ev.Kind != sand.Drained || c.Duration() <= 0 {
		return
	}
	r.sum += float64(c.Elapsed(now)) / float64(c.Duration())
	r.cycles++
}

func (r *CycleRatio) Value() float64 {
	if r.cycles == 0 {
		return 0
	}
	return r.sum / float64(r.cycles)
}

func (r *CycleRatio) Reset() {
	r.sum = 0
	r.cycles = 0
}

// StepJitter is the mean absolute difference, in milliseconds, between the
// observed gap between steps and the configured step interval.
type StepJitter struct {
	name    string
	last    time.Time
	sum     float64
	samples int
}

func NewStepJitter() *StepJitter { return &StepJitter{name: "step_jitter_ms"} }

func (j *StepJitter) Name() string { return j.name }

func (j *StepJitter) OnCycle(now time.Time, _ *cycle.Controller, _ string) {
	j.last = now
}

func (j *StepJitter) OnStep(now time.Time, _ sand.Event, c *cycle.Controller) {
	if !j.last.IsZero() {
		gap := now.Sub(j.last) - c.Interval()
		j.sum += math.Abs(float64(gap)) / float64(time.Millisecond)
		j.samples++
	}
	j.last = now
}

func (j *StepJitter) Value() float64 {
	if j.samples == 0 {
		return 0
	}
	return j.sum / float64(j.samples)
}

func (j *StepJitter) Reset() {
	j.last = time.Time{}
	j.sum = 0
	j.samples = 0
}
