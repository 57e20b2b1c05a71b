package tui

import (
	"strings"

	"github.com/san-kum/sandglass/internal/matrix"
)

// Braille cells are 2 dots wide and 4 tall:
//
//	1 4
//	2 5
//	3 6
//	7 8
var brailleDots = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// brailleBitmap packs an 8x8 bitmap into 4x2 braille runes, used when the
// terminal is too narrow for the full panels.
func brailleBitmap(bm matrix.Bitmap) []string {
	const w, h = matrix.Size / 2, matrix.Size / 4
	var grid [h][w]rune
	for r := range grid {
		for c := range grid[r] {
			grid[r][c] = brailleBlank
		}
	}
	for r := 0; r < matrix.Size; r++ {
		for c := 0; c < matrix.Size; c++ {
			if bm.Get(matrix.Cell{Row: r, Col: c}) {
				grid[r/4][c/2] |= brailleDots[r%4][c%2]
			}
		}
	}

	lines := make([]string, h)
	for i, row := range grid {
		lines[i] = string(row[:])
	}
	return lines
}

func joinBraille(left, right []string) string {
	var b strings.Builder
	for i := range left {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(left[i] + " " + right[i])
	}
	return b.String()
}
