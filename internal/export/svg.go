package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/matrix"
)

const panelGap = 2 // in LED pitches

// PanelsToSVG draws both panels side by side as LED grids, each frame exactly
// as its panel would show it.
func PanelsToSVG(outputs [2]frame.Output, scale float64) string {
	if scale <= 0 {
		scale = 16
	}

	panelW := float64(matrix.Size) * scale
	width := 2*panelW + panelGap*scale
	height := panelW + 2*scale // room for labels

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	dotRadius := scale * 0.4
	for i, out := range outputs {
		baseX := float64(i) * (panelW + panelGap*scale)
		lit := out.Frame.Color().Hex()
		bm := out.Frame.Bitmap()

		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#888899" font-family="monospace" font-size="%.0f">%s 0x%02x %s</text>
`, baseX, scale, scale*0.8, out.Panel.Name, out.Panel.Addr, out.Side))

		for r := 0; r < matrix.Size; r++ {
			for c := 0; c < matrix.Size; c++ {
				fill := "#1a1a1a"
				if bm.Get(matrix.Cell{Row: r, Col: c}) {
					fill = lit
				}
				cx := baseX + float64(c)*scale + scale/2
				cy := 2*scale + float64(r)*scale + scale/2
				sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, cx, cy, dotRadius, fill))
			}
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

type Point struct{ X, Y float64 }

// SeriesToSVG plots one or more polylines on shared axes.
func SeriesToSVG(series [][]Point, colors []string, width, height int) string {
	var all []Point
	for _, s := range series {
		all = append(all, s...)
	}
	if len(all) < 2 {
		return ""
	}

	minX, maxX := all[0].X, all[0].X
	minY, maxY := all[0].Y, all[0].Y
	for _, p := range all {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	maxX += rangeX * 0.05
	minY -= rangeY * 0.05
	maxY += rangeY * 0.05
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for i, s := range series {
		if len(s) < 2 {
			continue
		}
		color := "#00ff00"
		if i < len(colors) {
			color = colors[i]
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color))
		for j, p := range s {
			x := (p.X - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-minY)/rangeY*float64(height)
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}
