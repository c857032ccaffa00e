package tilegrid

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultGridSize, cfg.Grid.Width)
	assert.Equal(t, DefaultGridSize, cfg.Grid.Height)
	assert.Equal(t, 1.0, cfg.View.TileSize)
	assert.Equal(t, DefaultTickTarget, cfg.Tick.Target)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Debug.Enabled)
}

func TestParseConfigTOML(t *testing.T) {
	data := []byte(`
[grid]
width = 16
height = 12

[view]
tile_size = 24
camera_x = 8
camera_y = 6

[tick]
target = "20ms"

[logging]
level = "debug"
format = "json"
`)
	cfg, err := ParseConfig(data, "toml")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Grid.Width)
	assert.Equal(t, 12, cfg.Grid.Height)
	assert.Equal(t, 24.0, cfg.View.TileSize)
	assert.Equal(t, 20*time.Millisecond, cfg.Tick.Target)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultNear, cfg.View.Near)
	assert.Equal(t, 60, cfg.Debug.StatsEvery)

	vs := cfg.ViewState(640, 480)
	assert.Equal(t, Vec2{X: 8, Y: 6}, vs.Camera)
	assert.Equal(t, 640, vs.Width)
}

func TestParseConfigYAML(t *testing.T) {
	data := []byte(`
grid:
  width: 10
  height: 10
tick:
  target: 33ms
debug:
  enabled: true
  stats_every: 5
`)
	cfg, err := ParseConfig(data, "yaml")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Grid.Width)
	assert.Equal(t, 33*time.Millisecond, cfg.Tick.Target)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, 5, cfg.Debug.StatsEvery)
}

func TestParseConfigEmptyYAMLIsDefault(t *testing.T) {
	cfg, err := ParseConfig(nil, "yml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfigYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("grid:\n  depth: 3\n"), "yaml")
	assert.Error(t, err)
}

func TestParseConfigUnsupportedFormat(t *testing.T) {
	_, err := ParseConfig([]byte("{}"), "ini")
	assert.ErrorContains(t, err, "unsupported")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero width", func(c *Config) { c.Grid.Width = 0 }},
		{"negative height", func(c *Config) { c.Grid.Height = -3 }},
		{"zero tile size", func(c *Config) { c.View.TileSize = 0 }},
		{"near equals far", func(c *Config) { c.View.Near, c.View.Far = 2, 2 }},
		{"zero tick target", func(c *Config) { c.Tick.Target = 0 }},
		{"negative stats interval", func(c *Config) { c.Debug.StatsEvery = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestParseConfigValidates(t *testing.T) {
	_, err := ParseConfig([]byte("[grid]\nwidth = -1\n"), "toml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.TOML")
	require.NoError(t, os.WriteFile(path, []byte("[grid]\nwidth = 7\nheight = 9\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Grid.Width)
	assert.Equal(t, 9, cfg.Grid.Height)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "grid.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("grid: [1, 2]\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "parse config")
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := NewLogger(LoggingConfig{Level: "warn", Format: format})
		require.NoError(t, err, format)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel), "%s logger enables debug", format)
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel), "%s logger disables warn", format)
	}

	log, err := NewLogger(LoggingConfig{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel), "bad level should fall back to info")
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
