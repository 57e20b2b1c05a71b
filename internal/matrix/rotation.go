package matrix

import (
	"errors"
	"fmt"
)

// ErrInvalidRotation indicates a mounting angle that is not a quarter turn.
var ErrInvalidRotation = errors.New("matrix: rotation must be 0, 90, 180 or 270 degrees")

// Rotation is a clockwise quarter-turn about the grid centre.
type Rotation uint8

const (
	Rot0 Rotation = iota
	Rot90
	Rot180
	Rot270
)

func ParseRotation(degrees int) (Rotation, error) {
	switch degrees {
	case 0:
		return Rot0, nil
	case 90:
		return Rot90, nil
	case 180:
		return Rot180, nil
	case 270:
		return Rot270, nil
	}
	return Rot0, fmt.Errorf("%w: got %d", ErrInvalidRotation, degrees)
}

func (r Rotation) Degrees() int {
	if r > Rot270 {
		return 0
	}
	return int(r) * 90
}

func (r Rotation) String() string {
	return fmt.Sprintf("%d°", r.Degrees())
}

// Map returns the physical cell that logical cell c lands on. Cells outside
// the grid and unknown rotation values map to themselves.
func (r Rotation) Map(c Cell) Cell {
	if !c.InBounds() {
		return c
	}
	const last = Size - 1
	switch r {
	case Rot90:
		return Cell{Row: c.Col, Col: last - c.Row}
	case Rot180:
		return Cell{Row: last - c.Row, Col: last - c.Col}
	case Rot270:
		return Cell{Row: last - c.Col, Col: c.Row}
	default:
		return c
	}
}

// Inverse returns the rotation that undoes r.
func (r Rotation) Inverse() Rotation {
	if r > Rot270 {
		return Rot0
	}
	return (4 - r) % 4
}
