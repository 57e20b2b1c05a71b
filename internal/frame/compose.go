package frame

import (
	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/sand"
)

// Panel is one physical 8x8 matrix on the bus.
type Panel struct {
	Name     string
	Addr     uint8
	Rotation matrix.Rotation
}

// Layout describes both panels and the constant sand colour.
type Layout struct {
	A, B  Panel
	Color Color
}

// DefaultLayout matches the reference build: two panels mounted a half turn
// apart so both present upright.
func DefaultLayout() Layout {
	return Layout{
		A:     Panel{Name: "A", Addr: 0x08, Rotation: matrix.Rot90},
		B:     Panel{Name: "B", Addr: 0x09, Rotation: matrix.Rot270},
		Color: Color{R: 0xff, G: 0xa0, B: 0x20},
	}
}

type Side int

const (
	SourceSide Side = iota
	TargetSide
)

func (s Side) String() string {
	if s == SourceSide {
		return "source"
	}
	return "target"
}

// Output is one frame ready for transmission to its panel.
type Output struct {
	Panel Panel
	Side  Side
	Frame Frame
}

// Compose renders both panels from snap. Panel A shows the source field when
// dir is Normal and the target field when Inverted. The hole marker only cuts
// into the source field.
func (l Layout) Compose(snap sand.Snapshot, dir sand.Direction) [2]Output {
	source := snap.Hole.Mask(snap.Source)
	target := snap.Target

	aSide, bSide := SourceSide, TargetSide
	if dir == sand.Inverted {
		aSide, bSide = TargetSide, SourceSide
	}
	pick := func(s Side) matrix.Bitmap {
		if s == SourceSide {
			return source
		}
		return target
	}

	return [2]Output{
		{Panel: l.A, Side: aSide, Frame: New(pick(aSide).Rotate(l.A.Rotation), l.Color)},
		{Panel: l.B, Side: bSide, Frame: New(pick(bSide).Rotate(l.B.Rotation), l.Color)},
	}
}
