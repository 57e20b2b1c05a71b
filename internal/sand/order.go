package sand

import (
	"cmp"
	"slices"

	"github.com/san-kum/sandglass/internal/matrix"
)

// DrainOrder is the fixed sequence in which source cells are extinguished.
type DrainOrder [matrix.Cells]matrix.Cell

// NewDrainOrder groups cells by anti-diagonal s = row+col ascending, then by
// distance from the main diagonal |row-col| ascending, then by row.
func NewDrainOrder() DrainOrder {
	cells := make([]matrix.Cell, 0, matrix.Cells)
	for row := 0; row < matrix.Size; row++ {
		for col := 0; col < matrix.Size; col++ {
			cells = append(cells, matrix.Cell{Row: row, Col: col})
		}
	}

	slices.SortStableFunc(cells, func(a, b matrix.Cell) int {
		if c := cmp.Compare(a.Row+a.Col, b.Row+b.Col); c != 0 {
			return c
		}
		if c := cmp.Compare(diagonalDistance(a), diagonalDistance(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.Row, b.Row)
	})

	var o DrainOrder
	copy(o[:], cells)
	return o
}

func diagonalDistance(c matrix.Cell) int {
	d := c.Row - c.Col
	if d < 0 {
		return -d
	}
	return d
}

// Index returns the position of c in the order, or -1.
func (o *DrainOrder) Index(c matrix.Cell) int {
	for i, oc := range o {
		if oc == c {
			return i
		}
	}
	return -1
}
