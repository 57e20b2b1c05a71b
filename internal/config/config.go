package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/matrix"
	"gopkg.in/yaml.v3"
)

const (
	DefaultReading      = 150
	DefaultThreshold    = 35.0
	DefaultDebounceMs   = 800
	DefaultColor        = "#ffa020"
	DefaultPollMs       = 1
	DefaultListen       = ":8088"
	DefaultLogLevel     = "info"
	DefaultRotationA    = 90
	DefaultRotationB    = 270
	DefaultAddressA     = 0x08
	DefaultAddressB     = 0x09
	DefaultCompletionHz = 880.0
)

var (
	ErrInvalidThreshold = errors.New("config: tilt threshold must be between 0 and 90 degrees")
	ErrInvalidDebounce  = errors.New("config: debounce must not be negative")
	ErrSameAddress      = errors.New("config: panels must use distinct bus addresses")
)

type Config struct {
	LogLevel string       `yaml:"log_level"`
	Duration SelectConfig `yaml:"duration"`
	Tilt     TiltConfig   `yaml:"tilt"`
	Panels   PanelsConfig `yaml:"panels"`
	Color    string       `yaml:"color"`
	Tones    TonesConfig  `yaml:"tones"`
	Loop     LoopConfig   `yaml:"loop"`
	Server   ServerConfig `yaml:"server"`
}

// SelectConfig stands in for the duration knob. A named preset overrides the
// raw reading.
type SelectConfig struct {
	Reading int    `yaml:"reading"`
	Preset  string `yaml:"preset,omitempty"`
}

type TiltConfig struct {
	Threshold  float64 `yaml:"threshold"`
	DebounceMs int     `yaml:"debounce_ms"`
}

type PanelsConfig struct {
	A PanelConfig `yaml:"a"`
	B PanelConfig `yaml:"b"`
}

type PanelConfig struct {
	Address  uint8 `yaml:"address"`
	Rotation int   `yaml:"rotation"`
}

type ToneSpec struct {
	Hz float64 `yaml:"hz"`
	Ms int     `yaml:"ms"`
}

func (t ToneSpec) Duration() time.Duration { return time.Duration(t.Ms) * time.Millisecond }

type TonesConfig struct {
	Enabled    bool       `yaml:"enabled"`
	Startup    []ToneSpec `yaml:"startup"`
	Completion ToneSpec   `yaml:"completion"`
}

type LoopConfig struct {
	PollMs         int  `yaml:"poll_ms"`
	FrameEveryPoll bool `yaml:"frame_every_poll"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Duration: SelectConfig{Reading: DefaultReading},
		Tilt: TiltConfig{
			Threshold:  DefaultThreshold,
			DebounceMs: DefaultDebounceMs,
		},
		Panels: PanelsConfig{
			A: PanelConfig{Address: DefaultAddressA, Rotation: DefaultRotationA},
			B: PanelConfig{Address: DefaultAddressB, Rotation: DefaultRotationB},
		},
		Color: DefaultColor,
		Tones: TonesConfig{
			Enabled: true,
			Startup: []ToneSpec{
				{Hz: 523.25, Ms: 120},
				{Hz: 659.25, Ms: 120},
			},
			Completion: ToneSpec{Hz: DefaultCompletionHz, Ms: 400},
		},
		Loop:   LoopConfig{PollMs: DefaultPollMs},
		Server: ServerConfig{Listen: DefaultListen},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Tilt.Threshold <= 0 || c.Tilt.Threshold >= 90 {
		return fmt.Errorf("%w: got %g", ErrInvalidThreshold, c.Tilt.Threshold)
	}
	if c.Tilt.DebounceMs < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDebounce, c.Tilt.DebounceMs)
	}
	if c.Panels.A.Address == c.Panels.B.Address {
		return fmt.Errorf("%w: both %#02x", ErrSameAddress, c.Panels.A.Address)
	}
	if c.Duration.Preset != "" {
		if _, err := GetPreset(c.Duration.Preset); err != nil {
			return err
		}
	}
	_, err := c.Layout()
	return err
}

// Layout builds the panel layout the compositor renders with.
func (c *Config) Layout() (frame.Layout, error) {
	rotA, err := matrix.ParseRotation(c.Panels.A.Rotation)
	if err != nil {
		return frame.Layout{}, fmt.Errorf("panel a: %w", err)
	}
	rotB, err := matrix.ParseRotation(c.Panels.B.Rotation)
	if err != nil {
		return frame.Layout{}, fmt.Errorf("panel b: %w", err)
	}
	color, err := frame.ParseColor(c.Color)
	if err != nil {
		return frame.Layout{}, err
	}
	return frame.Layout{
		A:     frame.Panel{Name: "A", Addr: c.Panels.A.Address, Rotation: rotA},
		B:     frame.Panel{Name: "B", Addr: c.Panels.B.Address, Rotation: rotB},
		Color: color,
	}, nil
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Tilt.DebounceMs) * time.Millisecond
}

func (c *Config) PollInterval() time.Duration {
	if c.Loop.PollMs < 0 {
		return 0
	}
	return time.Duration(c.Loop.PollMs) * time.Millisecond
}

// SelectorReading returns the knob position, resolving a preset if one is set.
func (c *Config) SelectorReading() int {
	if c.Duration.Preset != "" {
		if r, err := GetPreset(c.Duration.Preset); err == nil {
			return r
		}
	}
	return c.Duration.Reading
}
