package cycle

import (
	"time"

	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/sand"
)

const (
	// FramesPerGrain is the number of simulation steps budgeted per grain.
	FramesPerGrain = 10
	MinInterval    = time.Millisecond
)

// StepInterval spreads a cycle of 64 grains over d.
func StepInterval(d time.Duration) time.Duration {
	iv := d / (matrix.Cells * FramesPerGrain)
	if iv < MinInterval {
		return MinInterval
	}
	return iv
}

type State int

const (
	Running State = iota
	Finished
)

func (s State) String() string {
	if s == Finished {
		return "finished"
	}
	return "running"
}

type Controller struct {
	session *sand.Session

	dir      sand.Direction
	duration time.Duration
	interval time.Duration
	started  time.Time
	lastStep time.Time
	finished time.Time
	state    State
	steps    int
	restarts int
}

func New() *Controller {
	return &Controller{session: sand.NewSession()}
}

// Restart throws away the running cycle and starts a fresh one draining in
// dir. The whole session is replaced before the next step can run.
func (c *Controller) Restart(now time.Time, dir sand.Direction, duration time.Duration) {
	c.session = sand.NewSession()
	c.dir = dir
	c.duration = duration
	c.interval = StepInterval(duration)
	c.started = now
	c.lastStep = now
	c.finished = time.Time{}
	c.state = Running
	c.steps = 0
	c.restarts++
}

// Due reports whether a step interval has elapsed since the last step.
func (c *Controller) Due(now time.Time) bool {
	return c.state == Running && now.Sub(c.lastStep) >= c.interval
}

// Advance runs at most one step. Missed intervals are not caught up.
func (c *Controller) Advance(now time.Time) (sand.Event, bool) {
	if !c.Due(now) {
		return sand.Event{}, false
	}
	c.lastStep = now
	c.steps++
	ev := c.session.Step()
	if ev.Kind == sand.Drained {
		c.state = Finished
		c.finished = now
	}
	return ev, true
}

func (c *Controller) Session() *sand.Session    { return c.session }
func (c *Controller) Snapshot() sand.Snapshot   { return c.session.Snapshot() }
func (c *Controller) Direction() sand.Direction { return c.dir }
func (c *Controller) Duration() time.Duration   { return c.duration }
func (c *Controller) Interval() time.Duration   { return c.interval }
func (c *Controller) State() State              { return c.state }
func (c *Controller) Steps() int                { return c.steps }
func (c *Controller) Restarts() int             { return c.restarts }
func (c *Controller) Started() time.Time        { return c.started }

func (c *Controller) Elapsed(now time.Time) time.Duration {
	if c.state == Finished {
		return c.finished.Sub(c.started)
	}
	return now.Sub(c.started)
}

// Progress is the fraction of grains settled, 0..1.
func (c *Controller) Progress() float64 {
	return float64(c.session.Settled()) / matrix.Cells
}
