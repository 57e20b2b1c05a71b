package scenario

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/loop"
	"github.com/san-kum/sandglass/internal/sand"
)

var ErrTimeLimit = errors.New("scenario: virtual time limit reached")

// Poll is the virtual time between loop iterations.
const Poll = time.Millisecond

// Epoch is where virtual clocks start. Any fixed instant works; a fixed one
// keeps recordings of the same scenario identical.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type Run struct {
	Scenario *Scenario
	Reading  int
	Options  loop.Options

	// Limit caps virtual time when the scenario has no length of its own.
	Limit time.Duration

	Sinks     []loop.Bus
	Observers []loop.Observer
}

type Result struct {
	Name      string
	Reading   int
	Duration  time.Duration
	Elapsed   time.Duration
	Cycles    int
	Flips     int
	Completed int
	Steps     int
	Settled   int
	State     cycle.State
	Direction sand.Direction
	Frames    [2]frame.Output
}

type tally struct {
	cycles, flips, completed, steps int
}

func (t *tally) OnCycle(_ time.Time, _ *cycle.Controller, reason string) {
	t.cycles++
	if reason == "flip" {
		t.flips++
	}
}

func (t *tally) OnStep(_ time.Time, ev sand.Event, _ *cycle.Controller) {
	t.steps++
	if ev.Kind == sand.Drained {
		t.completed++
	}
}

// Execute plays the scenario on a manual clock. It stops when the scenario
// length is reached or, for open-ended scenarios, when the first cycle
// finishes.
func (r Run) Execute(ctx context.Context) (Result, error) {
	clock := loop.NewManualClock(Epoch)
	sensor := NewSensor(r.Scenario, clock.Now)
	runner := loop.New(clock, sensor, loop.FixedSelector(r.Reading), loop.Silent{}, r.Options)

	counts := &tally{}
	runner.AddObserver(counts)
	for _, o := range r.Observers {
		runner.AddObserver(o)
	}
	for _, s := range r.Sinks {
		runner.AddSink(s)
	}

	limit := r.Limit
	if r.Scenario.Length() > 0 {
		limit = r.Scenario.Length()
	}

	var err error
	runner.Start()
	for {
		elapsed := clock.Now().Sub(Epoch)
		if r.Scenario.Length() == 0 && runner.Controller().State() == cycle.Finished {
			break
		}
		if limit > 0 && elapsed >= limit {
			if r.Scenario.Length() == 0 {
				err = ErrTimeLimit
			}
			break
		}
		// Checked every virtual second to keep the hot loop cheap.
		if elapsed%time.Second == 0 && ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		runner.Poll(clock.Now())
		clock.Sleep(Poll)
	}

	c := runner.Controller()
	return Result{
		Name:      r.Scenario.Name,
		Reading:   r.Reading,
		Duration:  c.Duration(),
		Elapsed:   clock.Now().Sub(Epoch),
		Cycles:    counts.cycles,
		Flips:     counts.flips,
		Completed: counts.completed,
		Steps:     counts.steps,
		Settled:   c.Session().Settled(),
		State:     c.State(),
		Direction: c.Direction(),
		Frames:    runner.Frames(),
	}, err
}

// Sweep runs the same scenario once per reading, concurrently. Each run owns
// its own clock and runner, so they share nothing.
func Sweep(ctx context.Context, base Run, readings []int) ([]Result, error) {
	results := make([]Result, len(readings))
	errs := make([]error, len(readings))

	var wg sync.WaitGroup
	for i, reading := range readings {
		wg.Add(1)
		go func(idx, reading int) {
			defer wg.Done()

			run := base
			run.Reading = reading
			run.Sinks = nil
			run.Observers = nil
			results[idx], errs[idx] = run.Execute(ctx)
		}(i, reading)
	}

	wg.Wait()

	return results, errors.Join(errs...)
}
