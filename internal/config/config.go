// Package config loads the run configuration of the windgl command.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/windgl"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all run parameters.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Field     FieldConfig     `yaml:"field"`
	Particles ParticlesConfig `yaml:"particles"`
	Tunables  TunablesConfig  `yaml:"tunables"`
	Ramp      []StopConfig    `yaml:"ramp"`
	Run       RunConfig       `yaml:"run"`
}

// WindowConfig is the output surface size.
type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// FieldConfig selects the vector field.
type FieldConfig struct {
	Path        string  `yaml:"path"`         // metadata JSON; empty uses the vortex
	VortexSize  int     `yaml:"vortex_size"`  // vortex grid side
	VortexSpeed float32 `yaml:"vortex_speed"` // vortex peak speed
}

// ParticlesConfig holds the particle state parameters.
type ParticlesConfig struct {
	Count int    `yaml:"count"`
	Seed  uint64 `yaml:"seed"`
}

// TunablesConfig mirrors windgl.Tunables.
type TunablesConfig struct {
	FadeOpacity  float32 `yaml:"fade_opacity"`
	SpeedFactor  float32 `yaml:"speed_factor"`
	DropRate     float32 `yaml:"drop_rate"`
	DropRateBump float32 `yaml:"drop_rate_bump"`
}

// StopConfig is one color ramp stop.
type StopConfig struct {
	Offset float64 `yaml:"offset"`
	Color  string  `yaml:"color"`
}

// RunConfig controls the tick loop and its outputs.
type RunConfig struct {
	Backend        string `yaml:"backend"`
	Frames         int    `yaml:"frames"`
	Out            string `yaml:"out"`
	CSV            string `yaml:"csv"`
	TelemetryEvery int    `yaml:"telemetry_every"`
}

// Load returns the embedded defaults overlaid with the file at path.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Overlay(cfg, data); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay unmarshals data into cfg. Only keys present in data change;
// a ramp in data replaces the whole ramp.
func Overlay(cfg *Config, data []byte) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks the values the pipeline would reject.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("config: window %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Particles.Count < 1 {
		return fmt.Errorf("config: particle count %d", c.Particles.Count)
	}
	if c.Run.Frames < 0 {
		return fmt.Errorf("config: frames %d", c.Run.Frames)
	}
	if c.Field.Path == "" && c.Field.VortexSize <= 0 {
		return fmt.Errorf("config: vortex size %d", c.Field.VortexSize)
	}
	if _, err := c.ColorRamp(); err != nil {
		return err
	}
	return nil
}

// SimTunables returns the configured simulation parameters.
func (c *Config) SimTunables() windgl.Tunables {
	return windgl.Tunables{
		FadeOpacity:  c.Tunables.FadeOpacity,
		SpeedFactor:  c.Tunables.SpeedFactor,
		DropRate:     c.Tunables.DropRate,
		DropRateBump: c.Tunables.DropRateBump,
	}
}

// ColorRamp parses the configured ramp stops.
func (c *Config) ColorRamp() ([]windgl.ColorStop, error) {
	stops := make([]windgl.ColorStop, len(c.Ramp))
	for i, s := range c.Ramp {
		col, err := windgl.ParseHex(s.Color)
		if err != nil {
			return nil, fmt.Errorf("config: ramp stop %d: %w", i, err)
		}
		stops[i] = windgl.ColorStop{Offset: s.Offset, Color: col}
	}
	if _, err := windgl.BuildColorRamp(stops); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return stops, nil
}

// WriteYAML saves the configuration as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
