package tilegrid

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("tilegrid: invalid config")

// DefaultTickTarget is the default tick duration (about 60 ticks/s).
const DefaultTickTarget = 16 * time.Millisecond

// Config holds everything needed to construct a Runtime.
type Config struct {
	Grid    GridConfig    `toml:"grid" yaml:"grid"`
	View    ViewConfig    `toml:"view" yaml:"view"`
	Tick    TickConfig    `toml:"tick" yaml:"tick"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Debug   DebugConfig   `toml:"debug" yaml:"debug"`
}

type GridConfig struct {
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`
}

type ViewConfig struct {
	TileSize float64 `toml:"tile_size" yaml:"tile_size"` // pixels per world unit
	Near     float64 `toml:"near" yaml:"near"`
	Far      float64 `toml:"far" yaml:"far"`
	CameraX  float64 `toml:"camera_x" yaml:"camera_x"`
	CameraY  float64 `toml:"camera_y" yaml:"camera_y"`
}

type TickConfig struct {
	Target time.Duration `toml:"target" yaml:"target"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

type DebugConfig struct {
	Enabled    bool `toml:"enabled" yaml:"enabled"`
	StatsEvery int  `toml:"stats_every" yaml:"stats_every"` // ticks between stats lines
}

// DefaultConfig returns a 32×32 grid, tile size 1, depth range [-10, 10]
// and a 16ms tick target.
func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			Width:  DefaultGridSize,
			Height: DefaultGridSize,
		},
		View: ViewConfig{
			TileSize: 1,
			Near:     DefaultNear,
			Far:      DefaultFar,
		},
		Tick: TickConfig{
			Target: DefaultTickTarget,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Debug: DebugConfig{
			StatsEvery: 60,
		},
	}
}

// LoadConfig reads a TOML or YAML file, chosen by extension, over the
// defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	cfg, err := ParseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes data in the given format ("toml", "yaml" or "yml")
// over the defaults and validates the result.
func ParseConfig(data []byte, format string) (*Config, error) {
	cfg := DefaultConfig()
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot produce a working runtime.
func (c *Config) Validate() error {
	switch {
	case c.Grid.Width <= 0 || c.Grid.Height <= 0:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.Grid.Width, c.Grid.Height)
	case !(c.View.TileSize > 0):
		return fmt.Errorf("%w: tile_size %v", ErrInvalidConfig, c.View.TileSize)
	case c.View.Near == c.View.Far:
		return fmt.Errorf("%w: near == far (%v)", ErrInvalidConfig, c.View.Near)
	case c.Tick.Target <= 0:
		return fmt.Errorf("%w: tick target %v", ErrInvalidConfig, c.Tick.Target)
	case c.Debug.StatsEvery < 0:
		return fmt.Errorf("%w: stats_every %d", ErrInvalidConfig, c.Debug.StatsEvery)
	}
	return nil
}

// ViewState returns the initial view state for a width×height screen.
func (c *Config) ViewState(width, height int) ViewState {
	return ViewState{
		Width:    width,
		Height:   height,
		Camera:   Vec2{X: c.View.CameraX, Y: c.View.CameraY},
		TileSize: c.View.TileSize,
		Near:     c.View.Near,
		Far:      c.View.Far,
	}
}
