package tilt

import (
	"time"

	"github.com/san-kum/sandglass/internal/sand"
)

// Detector tracks orientation with hysteresis and debounces gravity flips.
type Detector struct {
	threshold float64
	debounce  time.Duration

	current  Orientation
	lastFlip time.Time
	hasFlip  bool
}

func NewDetector(threshold float64, debounce time.Duration) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if debounce < 0 {
		debounce = 0
	}
	return &Detector{threshold: threshold, debounce: debounce, current: Up}
}

func (d *Detector) Orientation() Orientation { return d.current }

// Observe folds r into the tracked orientation. Readings inside the neutral
// band leave it unchanged.
func (d *Detector) Observe(r Reading) Orientation {
	if o, ok := Infer(r, d.threshold); ok {
		d.current = o
	}
	return d.current
}

// Flip observes r and reports whether gravity now points against running.
// A flip is accepted only if the debounce interval has passed since the last
// accepted flip; the accepted time is remembered.
func (d *Detector) Flip(now time.Time, r Reading, running sand.Direction) (sand.Direction, bool) {
	dir := d.Observe(r).Direction()
	if dir == running {
		return running, false
	}
	if d.hasFlip && now.Sub(d.lastFlip) < d.debounce {
		return running, false
	}
	d.lastFlip = now
	d.hasFlip = true
	return dir, true
}

// LastFlip returns the time of the last accepted flip, if any.
func (d *Detector) LastFlip() (time.Time, bool) { return d.lastFlip, d.hasFlip }
