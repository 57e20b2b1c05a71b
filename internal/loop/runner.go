package loop

import (
	"context"
	"log/slog"
	"time"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/logging"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/tilt"
)

type Tone struct {
	Hz       float64
	Duration time.Duration
}

type Options struct {
	Layout    frame.Layout
	Threshold float64
	Debounce  time.Duration

	// PollInterval is the pause between loop iterations; zero busy-polls.
	PollInterval time.Duration

	// FrameEveryPoll resends frames even when nothing changed.
	FrameEveryPoll bool

	StartupTones   []Tone
	CompletionTone Tone
	Logger         *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Layout:       frame.DefaultLayout(),
		Threshold:    tilt.DefaultThreshold,
		Debounce:     tilt.DefaultDebounce,
		PollInterval: time.Millisecond,
	}
}

// OptionsFromConfig translates a validated config into runner options.
func OptionsFromConfig(cfg *config.Config, log *slog.Logger) (Options, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Layout:         layout,
		Threshold:      cfg.Tilt.Threshold,
		Debounce:       cfg.Debounce(),
		PollInterval:   cfg.PollInterval(),
		FrameEveryPoll: cfg.Loop.FrameEveryPoll,
		Logger:         log,
	}
	if cfg.Tones.Enabled {
		for _, t := range cfg.Tones.Startup {
			opts.StartupTones = append(opts.StartupTones, Tone{Hz: t.Hz, Duration: t.Duration()})
		}
		opts.CompletionTone = Tone{Hz: cfg.Tones.Completion.Hz, Duration: cfg.Tones.Completion.Duration()}
	}
	return opts, nil
}

// Runner is the single-threaded control loop. Everything it owns is touched
// only from the goroutine calling Start, Poll or Run.
type Runner struct {
	clock    Clock
	tilt     TiltSensor
	selector DurationSelector
	beeper   Beeper

	sinks     []Bus
	observers []Observer

	opts     Options
	log      *slog.Logger
	detector *tilt.Detector
	ctrl     *cycle.Controller

	last    [2]frame.Output
	sent    bool
	started bool
}

func New(clock Clock, t TiltSensor, sel DurationSelector, beeper Beeper, opts Options) *Runner {
	if beeper == nil {
		beeper = Silent{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{
		clock:    clock,
		tilt:     t,
		selector: sel,
		beeper:   beeper,
		opts:     opts,
		log:      log,
		detector: tilt.NewDetector(opts.Threshold, opts.Debounce),
		ctrl:     cycle.New(),
	}
}

func (r *Runner) AddSink(b Bus)                 { r.sinks = append(r.sinks, b) }
func (r *Runner) AddObserver(o Observer)        { r.observers = append(r.observers, o) }
func (r *Runner) Controller() *cycle.Controller { return r.ctrl }
func (r *Runner) Orientation() tilt.Orientation { return r.detector.Orientation() }

// Frames returns the most recently composed pair of panel frames.
func (r *Runner) Frames() [2]frame.Output { return r.last }

// Start plays the startup tones, then begins the first cycle in whatever
// direction the sensor currently reports.
func (r *Runner) Start() {
	r.log.Info("sandglass starting", "panels", 2, "color", r.opts.Layout.Color.Hex())
	for _, t := range r.opts.StartupTones {
		r.beeper.Beep(t.Hz, t.Duration)
		r.clock.Sleep(t.Duration)
	}

	now := r.clock.Now()
	o := r.detector.Observe(r.tilt.Read())
	r.restart(now, o.Direction(), "start")
	r.started = true
}

// Poll runs one loop iteration: flip check, at most one step, frame output.
func (r *Runner) Poll(now time.Time) {
	if !r.started {
		r.Start()
	}

	if dir, ok := r.detector.Flip(now, r.tilt.Read(), r.ctrl.Direction()); ok {
		r.log.Info("flip detected", "orientation", r.detector.Orientation(), "direction", dir)
		r.restart(now, dir, "flip")
	}

	if ev, ok := r.ctrl.Advance(now); ok {
		r.log.Debug("step", "event", ev.Kind, "row", ev.Cell.Row, "col", ev.Cell.Col, "settled", ev.Index)
		for _, o := range r.observers {
			o.OnStep(now, ev, r.ctrl)
		}
		if ev.Kind == sand.Drained {
			r.log.Info("cycle complete",
				"elapsed", r.ctrl.Elapsed(now).Round(time.Millisecond),
				"steps", r.ctrl.Steps())
			if t := r.opts.CompletionTone; t.Hz > 0 && t.Duration > 0 {
				r.beeper.Beep(t.Hz, t.Duration)
			}
		}
	}

	r.emit()
}

// Run polls until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started {
		r.Start()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.Poll(r.clock.Now())
		if r.opts.PollInterval > 0 {
			r.clock.Sleep(r.opts.PollInterval)
		}
	}
}

func (r *Runner) restart(now time.Time, dir sand.Direction, reason string) {
	reading := r.selector.Reading()
	d := config.DurationForReading(reading)
	r.ctrl.Restart(now, dir, d)
	r.log.Info("cycle start",
		"reason", reason,
		"direction", dir,
		"duration", d,
		"interval", r.ctrl.Interval(),
		"reading", reading)
	for _, o := range r.observers {
		o.OnCycle(now, r.ctrl, reason)
	}
}

func (r *Runner) emit() {
	out := r.opts.Layout.Compose(r.ctrl.Snapshot(), r.ctrl.Direction())
	if r.sent && out == r.last && !r.opts.FrameEveryPoll {
		return
	}
	r.last, r.sent = out, true

	for _, o := range out {
		r.log.Log(context.Background(), logging.LevelTrace, "frame",
			"panel", o.Panel.Name, "side", o.Side, "bytes", o.Frame.Hex())
		for _, s := range r.sinks {
			if err := s.Send(o.Panel.Addr, o.Frame); err != nil {
				r.log.Debug("bus send failed", "panel", o.Panel.Name, "addr", o.Panel.Addr, "err", err)
			}
		}
	}
}
