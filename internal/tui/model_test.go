package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/loop"
	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/tilt"
)

var start = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestModel() (Model, *loop.ManualClock, *loop.HeldTilt, *Knob, *loop.Runner) {
	clock := loop.NewManualClock(start)
	held := &loop.HeldTilt{}
	knob := NewKnob(150)
	r := loop.New(clock, held, knob, nil, loop.DefaultOptions())
	return NewModel(r, held, knob), clock, held, knob, r
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestArrowKeysSetTilt(t *testing.T) {
	m, _, held, _, _ := newTestModel()

	tests := []struct {
		key  string
		want tilt.Reading
	}{
		{"up", tilt.Reading{Pitch: tiltAngle}},
		{"down", tilt.Reading{Pitch: -tiltAngle}},
		{"left", tilt.Reading{Roll: -tiltAngle}},
		{"right", tilt.Reading{Roll: tiltAngle}},
		{" ", tilt.Reading{}},
	}
	for _, tt := range tests {
		m = update(m, key(tt.key))
		if got := held.Read(); got != tt.want {
			t.Errorf("key %q: expected %+v, got %+v", tt.key, tt.want, got)
		}
	}
}

func TestKnobKeys(t *testing.T) {
	m, _, _, knob, _ := newTestModel()

	m = update(m, key("2"))
	names := config.ListPresets()
	if want := config.Presets[names[1]]; knob.Reading() != want {
		t.Errorf("expected preset reading %d, got %d", want, knob.Reading())
	}

	knob.Set(1020)
	m = update(m, key("+"))
	if knob.Reading() != knobMax {
		t.Errorf("knob should clamp at %d, got %d", knobMax, knob.Reading())
	}
	knob.Set(10)
	update(m, key("-"))
	if knob.Reading() != 0 {
		t.Errorf("knob should clamp at 0, got %d", knob.Reading())
	}
}

func TestQuitKey(t *testing.T) {
	m, _, _, _, _ := newTestModel()
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestTickDrivesRunner(t *testing.T) {
	m, clock, _, _, r := newTestModel()

	m = update(m, tickMsg(clock.Now()))
	if r.Controller().Restarts() != 1 {
		t.Fatalf("first tick should start the cycle, got %d restarts", r.Controller().Restarts())
	}
	for i := 0; i < 30; i++ {
		clock.Advance(r.Controller().Interval())
		m = update(m, tickMsg(clock.Now()))
	}
	if r.Controller().Steps() != 30 {
		t.Errorf("expected 30 steps, got %d", r.Controller().Steps())
	}
	// One point for the fresh cycle plus one per step.
	if len(m.trace) != 31 {
		t.Errorf("expected 31 trace points, got %d", len(m.trace))
	}

	m = update(m, key("down"))
	m = update(m, tickMsg(clock.Now()))
	if r.Controller().Direction() != sand.Inverted {
		t.Error("down arrow should flip the hourglass")
	}
	if len(m.trace) != 1 || m.trace[0] != 0 {
		t.Errorf("trace should restart with the cycle, got %v", m.trace)
	}
}

func TestViewShowsPanelsAndStatus(t *testing.T) {
	m, clock, _, _, _ := newTestModel()
	m = update(m, tickMsg(clock.Now()))

	v := m.View()
	for _, want := range []string{"s a n d g l a s s", "A 0x08 source", "B 0x09 target", "0/64", "q quit"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestNarrowTerminalUsesBraille(t *testing.T) {
	m, clock, _, _, _ := newTestModel()
	m = update(m, tea.WindowSizeMsg{Width: 40, Height: 20})
	m = update(m, tickMsg(clock.Now()))

	v := m.View()
	if strings.Contains(v, "A 0x08 source") {
		t.Error("narrow view should not draw full panels")
	}
	if !strings.Contains(v, "⣿⣿⣿⣿") {
		t.Error("narrow view should show the full source panel in braille")
	}
}

func TestRenderPanelRows(t *testing.T) {
	var bm matrix.Bitmap
	bm.Set(matrix.Cell{Row: 0, Col: 0})
	out := frame.Output{
		Panel: frame.Panel{Name: "A", Addr: 0x08},
		Frame: frame.New(bm, frame.Color{R: 0xff}),
	}
	lines := strings.Split(renderPanel(out), "\n")
	// Title, top border, eight rows, bottom border.
	if len(lines) != 11 {
		t.Fatalf("expected 11 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[2], "██") || strings.Contains(lines[3], "██") {
		t.Error("only the first row should be lit")
	}
}
