package loop

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/tilt"
)

// TiltSensor is polled once per loop iteration. It has no error channel;
// stale readings look like fresh ones.
type TiltSensor interface {
	Read() tilt.Reading
}

// DurationSelector is the duration knob, read once per cycle start.
type DurationSelector interface {
	Reading() int
}

// Beeper emits a tone and returns immediately.
type Beeper interface {
	Beep(hz float64, d time.Duration)
}

// Bus transmits one frame to the panel at addr. Errors are logged by the
// loop and otherwise ignored.
type Bus interface {
	Send(addr uint8, f frame.Frame) error
}

// Observer is notified of cycle restarts and of every simulation step.
type Observer interface {
	OnCycle(now time.Time, c *cycle.Controller, reason string)
	OnStep(now time.Time, ev sand.Event, c *cycle.Controller)
}

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// ManualClock only moves when told to. Sleep advances it instantly, which
// lets headless runs compress a half-hour cycle into milliseconds.
type ManualClock struct {
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time        { return c.now }
func (c *ManualClock) Sleep(d time.Duration) { c.Advance(d) }
func (c *ManualClock) Advance(d time.Duration) {
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

// FixedSelector always reports the same knob position.
type FixedSelector int

func (s FixedSelector) Reading() int { return int(s) }

// HeldTilt is a tilt sensor whose reading is set by the caller. It is safe to
// Set from another goroutine, e.g. a terminal key handler.
type HeldTilt struct {
	mu sync.Mutex
	r  tilt.Reading
}

func (h *HeldTilt) Set(r tilt.Reading) {
	h.mu.Lock()
	h.r = r
	h.mu.Unlock()
}

func (h *HeldTilt) Read() tilt.Reading {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.r
}

type Silent struct{}

func (Silent) Beep(float64, time.Duration) {}

// WriterBus writes each frame as a hex line, prefixed by the panel address.
type WriterBus struct {
	W io.Writer
}

func (b WriterBus) Send(addr uint8, f frame.Frame) error {
	_, err := fmt.Fprintf(b.W, "%02x: %s\n", addr, f.Hex())
	return err
}
