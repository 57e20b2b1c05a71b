package sand

import "github.com/san-kum/sandglass/internal/matrix"

// Hole is the cosmetic refill marker that climbs the source panel. It ignores
// grains and settled sand entirely.
type Hole struct {
	matrix.Cell
	Active bool
}

func (h *Hole) Spawn(at matrix.Cell) {
	h.Cell = at
	h.Active = true
}

// Advance moves the marker one diagonal step toward (0,0). It deactivates as
// soon as it lands on row 0 or column 0, so a marker spawned at the neck is
// gone after exactly seven advances.
func (h *Hole) Advance() {
	if !h.Active {
		return
	}
	h.Row--
	h.Col--
	if h.Row <= 0 || h.Col <= 0 {
		h.Active = false
	}
}

// Mask turns the marker's cell off in b.
func (h Hole) Mask(b matrix.Bitmap) matrix.Bitmap {
	if h.Active {
		b.Clear(h.Cell)
	}
	return b
}
