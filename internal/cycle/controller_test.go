package cycle

import (
	"testing"
	"time"

	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/sand"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStepInterval(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     time.Duration
	}{
		{30 * time.Second, 46875 * time.Microsecond},
		{600 * time.Second, 937500 * time.Microsecond},
		{1800 * time.Second, 2812500 * time.Microsecond},
		{0, MinInterval},
		{100 * time.Millisecond, MinInterval},
	}
	for _, tt := range tests {
		if got := StepInterval(tt.duration); got != tt.want {
			t.Errorf("StepInterval(%v) = %v, want %v", tt.duration, got, tt.want)
		}
	}
}

func TestRestartResetsEverything(t *testing.T) {
	c := New()
	c.Restart(t0, sand.Normal, 30*time.Second)
	now := t0
	for i := 0; i < 50; i++ {
		now = now.Add(c.Interval())
		c.Advance(now)
	}
	if c.Session().Source().Count() == 64 {
		t.Fatal("expected the first cycle to have drained something")
	}

	c.Restart(now, sand.Inverted, 60*time.Second)
	s := c.Session()
	if s.Source().Count() != 64 || s.Target().Count() != 0 {
		t.Errorf("expected full source and empty target, got %d/%d", s.Source().Count(), s.Target().Count())
	}
	if s.Grain().Active || s.Hole().Active {
		t.Error("grain and hole must be inactive after restart")
	}
	if c.Direction() != sand.Inverted {
		t.Errorf("expected inverted, got %v", c.Direction())
	}
	if c.State() != Running || c.Steps() != 0 || c.Restarts() != 2 {
		t.Errorf("unexpected state after restart: %v steps=%d restarts=%d", c.State(), c.Steps(), c.Restarts())
	}
	if c.Interval() != StepInterval(60*time.Second) {
		t.Errorf("interval not recomputed: %v", c.Interval())
	}
}

func TestAdvanceHonoursInterval(t *testing.T) {
	c := New()
	c.Restart(t0, sand.Normal, 30*time.Second)
	iv := c.Interval()

	if _, ok := c.Advance(t0.Add(iv - time.Microsecond)); ok {
		t.Error("stepped before the interval elapsed")
	}
	if _, ok := c.Advance(t0.Add(iv)); !ok {
		t.Error("did not step once the interval elapsed")
	}
	if _, ok := c.Advance(t0.Add(iv + time.Microsecond)); ok {
		t.Error("stepped twice in one interval")
	}
}

func TestAdvanceDoesNotCatchUp(t *testing.T) {
	c := New()
	c.Restart(t0, sand.Normal, 30*time.Second)
	late := t0.Add(100 * c.Interval())

	if _, ok := c.Advance(late); !ok {
		t.Fatal("expected a step")
	}
	if _, ok := c.Advance(late); ok {
		t.Error("missed steps must not be replayed")
	}
	if c.Steps() != 1 {
		t.Errorf("expected 1 step, got %d", c.Steps())
	}
}

func TestCycleFinishes(t *testing.T) {
	c := New()
	c.Restart(t0, sand.Normal, 30*time.Second)
	now := t0
	drained := 0
	for i := 0; i < 5000 && c.State() == Running; i++ {
		now = now.Add(c.Interval())
		if ev, ok := c.Advance(now); ok && ev.Kind == sand.Drained {
			drained++
		}
	}
	if c.State() != Finished {
		t.Fatal("cycle never finished")
	}
	if drained != 1 {
		t.Errorf("expected a single drained event, got %d", drained)
	}
	if !c.Session().Source().Empty() || c.Session().Target() != matrix.Full() {
		t.Error("expected empty source and full target")
	}
	if c.Progress() != 1 {
		t.Errorf("expected progress 1, got %f", c.Progress())
	}

	done := c.Elapsed(now)
	if _, ok := c.Advance(now.Add(time.Hour)); ok {
		t.Error("finished cycle must not step")
	}
	if c.Elapsed(now.Add(time.Hour)) != done {
		t.Error("elapsed time must freeze once finished")
	}
}
