package export

import (
	"strings"
	"testing"

	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/matrix"
)

func TestPanelsToSVG(t *testing.T) {
	var half matrix.Bitmap
	for c := 0; c < matrix.Size; c++ {
		half.Set(matrix.Cell{Row: 0, Col: c})
	}
	color := frame.Color{R: 0xff, G: 0xa0, B: 0x20}
	outputs := [2]frame.Output{
		{Panel: frame.Panel{Name: "A", Addr: 0x08}, Side: frame.SourceSide, Frame: frame.New(half, color)},
		{Panel: frame.Panel{Name: "B", Addr: 0x09}, Side: frame.TargetSide, Frame: frame.New(matrix.Bitmap{}, color)},
	}

	svg := PanelsToSVG(outputs, 10)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not a complete svg document")
	}
	if got := strings.Count(svg, "<circle"); got != 2*matrix.Cells {
		t.Errorf("expected %d LEDs, got %d", 2*matrix.Cells, got)
	}
	if got := strings.Count(svg, `fill="#ffa020"`); got != matrix.Size {
		t.Errorf("expected %d lit LEDs, got %d", matrix.Size, got)
	}
	if !strings.Contains(svg, "A 0x08 source") || !strings.Contains(svg, "B 0x09 target") {
		t.Error("missing panel labels")
	}
}

func TestSeriesToSVG(t *testing.T) {
	if SeriesToSVG([][]Point{{{0, 0}}}, nil, 100, 50) != "" {
		t.Error("a single point should produce nothing")
	}

	up := []Point{{0, 0}, {1, 32}, {2, 64}}
	down := []Point{{0, 64}, {1, 32}, {2, 0}}
	svg := SeriesToSVG([][]Point{up, down}, []string{"#ffcc00", "#00ccff"}, 200, 100)
	if strings.Count(svg, "<path") != 2 {
		t.Errorf("expected two paths, got %q", svg)
	}
	if !strings.Contains(svg, `stroke="#ffcc00"`) || !strings.Contains(svg, `stroke="#00ccff"`) {
		t.Error("series colours missing")
	}
}
