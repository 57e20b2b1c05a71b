package matrix

import (
	"math/bits"
	"strings"
)

const (
	Size  = 8
	Cells = Size * Size
)

type Cell struct {
	Row, Col int
}

func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// Bitmap stores one byte per row. Bit 0 of a row is the leftmost column.
type Bitmap [Size]uint8

// Full returns a bitmap with all 64 cells lit.
func Full() Bitmap {
	var b Bitmap
	for i := range b {
		b[i] = 0xFF
	}
	return b
}

func (b *Bitmap) Set(c Cell) {
	if !c.InBounds() {
		return
	}
	b[c.Row] |= 1 << uint(c.Col)
}

func (b *Bitmap) Clear(c Cell) {
	if !c.InBounds() {
		return
	}
	b[c.Row] &^= 1 << uint(c.Col)
}

// Get reports whether c is lit. Out-of-range cells read as unlit.
func (b Bitmap) Get(c Cell) bool {
	if !c.InBounds() {
		return false
	}
	return b[c.Row]&(1<<uint(c.Col)) != 0
}

func (b Bitmap) Count() int {
	n := 0
	for _, row := range b {
		n += bits.OnesCount8(row)
	}
	return n
}

func (b Bitmap) Empty() bool { return b == Bitmap{} }

// Union returns the cells lit in either bitmap.
func (b Bitmap) Union(o Bitmap) Bitmap {
	for i := range b {
		b[i] |= o[i]
	}
	return b
}

// Rotate maps every lit cell through r. Rotations are bijections, so the
// number of lit cells is preserved.
func (b Bitmap) Rotate(r Rotation) Bitmap {
	if r == Rot0 {
		return b
	}
	var out Bitmap
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			c := Cell{Row: row, Col: col}
			if b.Get(c) {
				out.Set(r.Map(c))
			}
		}
	}
	return out
}

// String renders the bitmap as eight lines of '#' and '.', row 0 first.
func (b Bitmap) String() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if b.Get(Cell{Row: row, Col: col}) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if row < Size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
