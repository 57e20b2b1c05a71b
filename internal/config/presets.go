package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var ErrUnknownPreset = errors.New("config: unknown preset")

// Breakpoints split the 0..1023 knob range into six bands, one per entry of
// Durations.
var Breakpoints = [...]int{170, 341, 511, 682, 852}

var Durations = [...]time.Duration{
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	300 * time.Second,
	600 * time.Second,
	1800 * time.Second,
}

// DurationForReading maps a raw knob reading onto a cycle duration. Readings
// below zero fall in the first band, readings above 1023 in the last.
func DurationForReading(reading int) time.Duration {
	for i, bp := range Breakpoints {
		if reading < bp {
			return Durations[i]
		}
	}
	return Durations[len(Durations)-1]
}

// Presets are named knob positions, one inside each band.
var Presets = map[string]int{
	"sprint":    100,
	"minute":    250,
	"tea":       420,
	"five":      600,
	"ten":       760,
	"half-hour": 950,
}

func GetPreset(name string) (int, error) {
	r, ok := Presets[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	return r, nil
}

// ListPresets returns preset names ordered by duration.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return Presets[a] - Presets[b]
	})
	return names
}
