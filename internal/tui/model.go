// Package tui is the terminal front end: it polls the control loop on a tick,
// turns arrow keys into tilt readings and draws both panels as they would
// appear on the hardware.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/loop"
	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/tilt"
)

const (
	tickRate     = 10 * time.Millisecond
	tiltAngle    = 60
	knobStep     = 32
	maxTrace     = 512
	compactWidth = 48
)

// keyTilt maps arrow keys to the reading of a board held that way up.
var keyTilt = map[string]tilt.Reading{
	"up":    {Pitch: tiltAngle},
	"down":  {Pitch: -tiltAngle},
	"right": {Roll: tiltAngle},
	"left":  {Roll: -tiltAngle},
	"k":     {Pitch: tiltAngle},
	"j":     {Pitch: -tiltAngle},
	"l":     {Roll: tiltAngle},
	"h":     {Roll: -tiltAngle},
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type Model struct {
	runner *loop.Runner
	held   *loop.HeldTilt
	knob   *Knob

	reading  tilt.Reading
	trace    []float64
	restarts int
	started  bool

	width  int
	height int
}

func NewModel(r *loop.Runner, held *loop.HeldTilt, knob *Knob) Model {
	return Model{
		runner: r,
		held:   held,
		knob:   knob,
		trace:  make([]float64, 0, maxTrace),
		width:  80,
		height: 24,
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.started {
			m.runner.Start()
			m.started = true
		}
		before := m.runner.Controller().Steps()
		m.runner.Poll(time.Time(msg))
		m.record(m.runner.Controller(), before)
		return m, tick()
	}
	return m, nil
}

// record appends the settled count after each step, starting over whenever
// the cycle restarts.
func (m *Model) record(c *cycle.Controller, before int) {
	if c.Restarts() != m.restarts {
		m.restarts = c.Restarts()
		m.trace = m.trace[:0]
	} else if c.Steps() == before {
		return
	}
	if len(m.trace) == maxTrace {
		copy(m.trace, m.trace[1:])
		m.trace = m.trace[:maxTrace-1]
	}
	m.trace = append(m.trace, float64(c.Session().Target().Count()))
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()
	if r, ok := keyTilt[key]; ok {
		m.setTilt(r)
		return m, nil
	}

	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "0":
		m.setTilt(tilt.Reading{})
	case "+", "=":
		m.knob.Nudge(knobStep)
	case "-", "_":
		m.knob.Nudge(-knobStep)
	case "1", "2", "3", "4", "5", "6":
		names := config.ListPresets()
		if i := int(key[0] - '1'); i < len(names) {
			r, _ := config.GetPreset(names[i])
			m.knob.Set(r)
		}
	}
	return m, nil
}

func (m *Model) setTilt(r tilt.Reading) {
	m.reading = r
	m.held.Set(r)
}

func (m Model) View() string {
	c := m.runner.Controller()
	var b strings.Builder

	b.WriteString("\n")
	status := green.Render("● draining")
	if c.State() == cycle.Finished {
		status = yellow.Render("○ done")
	}
	b.WriteString(fmt.Sprintf("   %s  %s  %s\n",
		cyan.Render("s a n d g l a s s"), status,
		dim.Render(fmt.Sprintf("%s · %s", m.runner.Orientation(), c.Direction()))))

	now := time.Now()
	if !m.started {
		now = c.Started()
	}
	elapsed := c.Elapsed(now).Round(100 * time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n",
		progressBar(c.Progress(), 36),
		white.Render(fmt.Sprintf("%2d/%d", c.Session().Settled(), matrix.Cells)),
		dim.Render(fmt.Sprintf("%v / %v", elapsed, c.Duration()))))

	frames := m.runner.Frames()
	if m.width < compactWidth {
		lit := lipgloss.NewStyle().Foreground(lipgloss.Color(frames[0].Frame.Color().Hex()))
		mini := joinBraille(brailleBitmap(frames[0].Frame.Bitmap()), brailleBitmap(frames[1].Frame.Bitmap()))
		b.WriteString(indent(lit.Render(mini), "   "))
	} else {
		panels := make([]string, 0, len(frames))
		for _, out := range frames {
			panels = append(panels, renderPanel(out))
		}
		b.WriteString(indent(lipgloss.JoinHorizontal(lipgloss.Top, panels[0], "  ", panels[1]), "   "))
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("settled"), sparkline(m.trace, 36)))
	b.WriteString(fmt.Sprintf("   %s %s  %s %s\n",
		dim.Render("tilt"), white.Render(fmt.Sprintf("pitch %+.0f° roll %+.0f°", m.reading.Pitch, m.reading.Roll)),
		dim.Render("next"), white.Render(fmt.Sprintf("%v (knob %d)", config.DurationForReading(m.knob.Reading()), m.knob.Reading()))))

	b.WriteString("\n" + dim.Render("   ←↑↓→ tilt  space level  1-6 preset  ± knob  q quit") + "\n")
	return b.String()
}

// renderPanel draws a frame exactly as the panel receives it: row 0 on top,
// bit 0 on the left.
func renderPanel(out frame.Output) string {
	lit := lipgloss.NewStyle().Foreground(lipgloss.Color(out.Frame.Color().Hex()))
	bm := out.Frame.Bitmap()

	var b strings.Builder
	for r := 0; r < matrix.Size; r++ {
		for c := 0; c < matrix.Size; c++ {
			if bm.Get(matrix.Cell{Row: r, Col: c}) {
				b.WriteString(lit.Render("██"))
			} else {
				b.WriteString(dimmer.Render("· "))
			}
		}
		if r < matrix.Size-1 {
			b.WriteString("\n")
		}
	}

	title := dim.Render(fmt.Sprintf("%s 0x%02x %s %d°", out.Panel.Name, out.Panel.Addr, out.Side, out.Panel.Rotation.Degrees()))
	return lipgloss.JoinVertical(lipgloss.Left, title, panelBox.Render(b.String()))
}

func indent(s, pad string) string {
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}

// Run takes over the terminal until the user quits.
func Run(r *loop.Runner, held *loop.HeldTilt, knob *Knob) error {
	p := tea.NewProgram(NewModel(r, held, knob), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
