package tilt

import (
	"fmt"
	"time"

	"github.com/san-kum/sandglass/internal/sand"
)

const (
	DefaultThreshold = 35.0
	DefaultDebounce  = 800 * time.Millisecond
)

// Reading is one sample from the inclination sensor, in degrees.
type Reading struct {
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// Orientation is the coarse 4-way attitude of the hourglass.
type Orientation int

const (
	Up Orientation = iota
	Right
	Down
	Left
)

func (o Orientation) Degrees() int { return int(o) * 90 }

func (o Orientation) String() string {
	switch o {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// Direction maps the attitude onto which panel is uphill.
func (o Orientation) Direction() sand.Direction {
	switch o {
	case Down, Left:
		return sand.Inverted
	default:
		return sand.Normal
	}
}

// Infer classifies r against threshold. ok is false when neither axis is
// past the threshold; callers keep their previous orientation in that case.
func Infer(r Reading, threshold float64) (o Orientation, ok bool) {
	switch {
	case r.Pitch >= threshold:
		return Up, true
	case r.Pitch <= -threshold:
		return Down, true
	case r.Roll >= threshold:
		return Right, true
	case r.Roll <= -threshold:
		return Left, true
	default:
		return 0, false
	}
}
