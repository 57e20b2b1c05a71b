package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/sandglass/internal/matrix"
)

// Size is the wire length of one panel frame: eight row masks then R, G, B.
const Size = matrix.Size + 3

var ErrInvalidColor = errors.New("frame: color must be #RRGGBB")

type Color struct {
	R, G, B uint8
}

// ParseColor accepts "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("%w: got %q", ErrInvalidColor, s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %v", ErrInvalidColor, err)
	}
	return Color{R: raw[0], G: raw[1], B: raw[2]}, nil
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

type Frame [Size]byte

func New(b matrix.Bitmap, c Color) Frame {
	var f Frame
	copy(f[:matrix.Size], b[:])
	f[matrix.Size] = c.R
	f[matrix.Size+1] = c.G
	f[matrix.Size+2] = c.B
	return f
}

func (f Frame) Bitmap() matrix.Bitmap {
	var b matrix.Bitmap
	copy(b[:], f[:matrix.Size])
	return b
}

func (f Frame) Color() Color {
	return Color{R: f[matrix.Size], G: f[matrix.Size+1], B: f[matrix.Size+2]}
}

// Hex renders the frame as space separated byte pairs, as logged by the
// frames command.
func (f Frame) Hex() string {
	parts := make([]string, len(f))
	for i, b := range f {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}
