// Package config loads the ant-crawler yaml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ant-crawler/internal/simulation"
	"ant-crawler/internal/sprite"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Overlay OverlayConfig `yaml:"overlay"`
	Motion  MotionConfig  `yaml:"motion"`
	Surface SurfaceConfig `yaml:"surface"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// OverlayConfig holds the defaults of a run.
type OverlayConfig struct {
	SpriteSize int `yaml:"sprite_size"`
	// MaxSpriteSize caps sizes requested at runtime.
	MaxSpriteSize int     `yaml:"max_sprite_size"`
	Speed         float64 `yaml:"speed"` // pixels per second
	SpawnInset    float64 `yaml:"spawn_inset"`
	SpritePath    string  `yaml:"sprite_path"`
	Autostart     bool    `yaml:"autostart"`
	StatsEvery    int     `yaml:"stats_every"` // ticks between motion summaries, 0 disables
	// PermissionCommand opens the platform's overlay permission settings. Empty means always granted.
	PermissionCommand []string `yaml:"permission_command,omitempty"`
}

// MotionConfig holds the simulator tunables.
type MotionConfig struct {
	TickInterval       Duration `yaml:"tick_interval"`
	WanderFrequency    float64  `yaml:"wander_frequency"`
	WanderStrength     float64  `yaml:"wander_strength"` // radians
	SpeedMultiplierMin float64  `yaml:"speed_multiplier_min"`
	SpeedMultiplierMax float64  `yaml:"speed_multiplier_max"`
	SpeedHoldMin       int      `yaml:"speed_hold_min"` // ticks
	SpeedHoldMax       int      `yaml:"speed_hold_max"`
	BounceJitter       float64  `yaml:"bounce_jitter"` // radians
	PauseChance        float64  `yaml:"pause_chance"`  // per tick
	PauseMin           Duration `yaml:"pause_min"`
	PauseMax           Duration `yaml:"pause_max"`
	Seed               uint64   `yaml:"seed"` // 0 seeds from the clock
}

// SurfaceConfig selects and sizes the presentation backend.
type SurfaceConfig struct {
	Backend    string `yaml:"backend"` // ebiten or terminal
	Width      int    `yaml:"width"`   // 0 uses the monitor size
	Height     int    `yaml:"height"`
	CellWidth  int    `yaml:"cell_width"` // pixels per terminal cell
	CellHeight int    `yaml:"cell_height"`
	Debug      bool   `yaml:"debug"`
}

// ServerConfig configures the command socket.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// Supported backends.
const (
	BackendEbiten   = "ebiten"
	BackendTerminal = "terminal"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	p := simulation.DefaultParams()
	return &Config{
		Overlay: OverlayConfig{
			SpriteSize:    25,
			MaxSpriteSize: 512,
			Speed:         50,
			SpawnInset:    100,
			StatsEvery:    600,
		},
		Motion: MotionConfig{
			TickInterval:       Duration(p.TickInterval),
			WanderFrequency:    p.WanderFrequency,
			WanderStrength:     p.WanderStrength,
			SpeedMultiplierMin: p.SpeedMultiplierMin,
			SpeedMultiplierMax: p.SpeedMultiplierMax,
			SpeedHoldMin:       p.SpeedHoldMin,
			SpeedHoldMax:       p.SpeedHoldMax,
			BounceJitter:       p.BounceJitter,
			PauseChance:        p.PauseChance,
			PauseMin:           Duration(p.PauseMin),
			PauseMax:           Duration(p.PauseMax),
		},
		Surface: SurfaceConfig{
			Backend:    BackendEbiten,
			CellWidth:  10,
			CellHeight: 20,
		},
		Server: ServerConfig{
			Enabled: true,
			Address: "127.0.0.1:8765",
		},
		Log: LogConfig{
			Path:  "logs/antcrawler.log",
			Level: "INFO",
		},
	}
}

// Params converts the motion section into simulator parameters.
func (m MotionConfig) Params() simulation.Params {
	return simulation.Params{
		TickInterval:       time.Duration(m.TickInterval),
		WanderFrequency:    m.WanderFrequency,
		WanderStrength:     m.WanderStrength,
		SpeedMultiplierMin: m.SpeedMultiplierMin,
		SpeedMultiplierMax: m.SpeedMultiplierMax,
		SpeedHoldMin:       m.SpeedHoldMin,
		SpeedHoldMax:       m.SpeedHoldMax,
		BounceJitter:       m.BounceJitter,
		PauseChance:        m.PauseChance,
		PauseMin:           time.Duration(m.PauseMin),
		PauseMax:           time.Duration(m.PauseMax),
	}
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	if err := c.Motion.Params().Validate(); err != nil {
		return fmt.Errorf("invalid motion config: %w", err)
	}
	if c.Overlay.SpriteSize < 1 {
		return fmt.Errorf("invalid overlay.sprite_size %d: must be positive", c.Overlay.SpriteSize)
	}
	if c.Overlay.MaxSpriteSize < c.Overlay.SpriteSize || c.Overlay.MaxSpriteSize > sprite.MaxSize {
		return fmt.Errorf("invalid overlay.max_sprite_size %d: must be between sprite_size and %d",
			c.Overlay.MaxSpriteSize, sprite.MaxSize)
	}
	switch strings.ToLower(c.Surface.Backend) {
	case BackendEbiten, BackendTerminal:
	default:
		return fmt.Errorf("invalid surface.backend %q: must be %s or %s", c.Surface.Backend, BackendEbiten, BackendTerminal)
	}
	return nil
}

// Load reads the configuration at path, creating it with defaults when missing.
// Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte(`# ant-crawler configuration
# Durations use Go syntax: 16ms, 1.5s, 2m
# surface.backend: ebiten, terminal

`)
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Duration is a time.Duration written as a string in yaml.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
