// Package scenario scripts tilt over virtual time so headless runs are
// repeatable.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/tilt"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownScenario = errors.New("scenario: unknown scenario")
	ErrStepOrder       = errors.New("scenario: steps must be in time order")
	ErrNegativeTime    = errors.New("scenario: negative time")
)

// Scenario is a scripted tilt sequence.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Reading is the raw knob position; Preset, if set, overrides it.
	Reading int    `yaml:"reading"`
	Preset  string `yaml:"preset,omitempty"`

	// LengthMs bounds the run. Zero means stop when the first cycle finishes.
	LengthMs int64  `yaml:"length_ms"`
	Steps    []Step `yaml:"steps"`
}

// Step holds a tilt reading from AtMs until the next step.
type Step struct {
	AtMs  int64   `yaml:"at_ms"`
	Pitch float64 `yaml:"pitch"`
	Roll  float64 `yaml:"roll"`
}

func (s Step) At() time.Duration { return time.Duration(s.AtMs) * time.Millisecond }

func (s Step) Reading() tilt.Reading { return tilt.Reading{Pitch: s.Pitch, Roll: s.Roll} }

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Scenario) Validate() error {
	if s.LengthMs < 0 {
		return fmt.Errorf("%w: length %dms", ErrNegativeTime, s.LengthMs)
	}
	for i, st := range s.Steps {
		if st.AtMs < 0 {
			return fmt.Errorf("%w: step %d at %dms", ErrNegativeTime, i+1, st.AtMs)
		}
		if i > 0 && st.AtMs < s.Steps[i-1].AtMs {
			return fmt.Errorf("%w: step %d at %dms", ErrStepOrder, i+1, st.AtMs)
		}
	}
	if s.Preset != "" {
		if _, err := config.GetPreset(s.Preset); err != nil {
			return err
		}
	}
	return nil
}

// SelectorReading resolves the knob position the scenario asks for.
func (s *Scenario) SelectorReading() int {
	if s.Preset != "" {
		if r, err := config.GetPreset(s.Preset); err == nil {
			return r
		}
	}
	return s.Reading
}

func (s *Scenario) Length() time.Duration {
	return time.Duration(s.LengthMs) * time.Millisecond
}

// ReadingAt returns the reading of the last step at or before t. Before the
// first step the hourglass is level.
func (s *Scenario) ReadingAt(t time.Duration) tilt.Reading {
	i := sort.Search(len(s.Steps), func(i int) bool { return s.Steps[i].At() > t })
	if i == 0 {
		return tilt.Reading{}
	}
	return s.Steps[i-1].Reading()
}

// Sensor replays a scenario against a clock, measured from start.
type Sensor struct {
	sc    *Scenario
	now   func() time.Time
	start time.Time
}

func NewSensor(sc *Scenario, now func() time.Time) *Sensor {
	return &Sensor{sc: sc, now: now, start: now()}
}

func (s *Sensor) Read() tilt.Reading {
	return s.sc.ReadingAt(s.now().Sub(s.start))
}

var builtins = map[string]Scenario{
	"drain": {
		Name:        "drain",
		Description: "level hourglass, one full cycle",
		Preset:      "sprint",
	},
	"flip": {
		Name:        "flip",
		Description: "invert halfway through a 30s cycle, then run it out",
		Preset:      "sprint",
		LengthMs:    50_000,
		Steps: []Step{
			{AtMs: 0, Pitch: 60},
			{AtMs: 15_000, Pitch: -60},
		},
	},
	"jitter": {
		Name:        "jitter",
		Description: "rapid back-and-forth tilts, most inside the debounce window",
		Preset:      "sprint",
		LengthMs:    10_000,
		Steps: []Step{
			{AtMs: 0, Roll: 50},
			{AtMs: 2_000, Roll: -50},
			{AtMs: 2_300, Roll: 50},
			{AtMs: 2_600, Roll: -50},
			{AtMs: 4_000, Roll: 50},
			{AtMs: 4_500, Roll: 10},
		},
	},
}

// Builtin returns a copy of a bundled scenario.
func Builtin(name string) (*Scenario, error) {
	sc, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownScenario, name, Builtins())
	}
	sc.Steps = slices.Clone(sc.Steps)
	return &sc, nil
}

func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve treats name as a bundled scenario first, then as a file path.
func Resolve(name string) (*Scenario, error) {
	if _, ok := builtins[name]; ok {
		return Builtin(name)
	}
	return Load(name)
}
