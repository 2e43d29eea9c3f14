package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfiguration() *Configuration {
	cfg := DefaultConfiguration()
	cfg.Width, cfg.Height = 64, 48
	return cfg
}

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	assert.Equal(t, Thresholds{High: 80, Low: 20}, cfg.GetThresholds())
	assert.Equal(t, 5, cfg.GetBorderMargin())
	assert.Equal(t, HistoryClear, cfg.History)
	assert.Equal(t, ModeConcurrent, cfg.Mode)

	d, err := cfg.GetStallTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestLoadConfigurationTOML(t *testing.T) {
	path := writeFile(t, "canny.toml", `
width = 640
height = 480
high_threshold = 120
history = "carry"
mode = "fused"
stall_timeout = "250ms"
`)
	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
	assert.Equal(t, Thresholds{High: 120, Low: 20}, cfg.GetThresholds())
	assert.Equal(t, HistoryCarry, cfg.History)
	assert.Equal(t, ModeFused, cfg.Mode)
	assert.Equal(t, 5, cfg.GetBorderMargin())
	require.NoError(t, cfg.Validate())

	d, err := cfg.GetStallTimeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestLoadConfigurationYAML(t *testing.T) {
	path := writeFile(t, "canny.yaml", `
width: 32
height: 32
low_threshold: 5
border_margin: 0
strict_thresholds: true
log_format: json
`)
	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.Equal(t, Thresholds{High: 80, Low: 5}, cfg.GetThresholds())
	assert.Equal(t, 0, cfg.GetBorderMargin())
	assert.True(t, cfg.StrictThresholds)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigurationErrors(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfiguration(writeFile(t, "canny.json", `{}`))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = LoadConfiguration(writeFile(t, "broken.toml", `width = "wide"`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
		target error
	}{
		{"width too small", func(c *Configuration) { c.Width = 2 }, ErrInvalidConfiguration},
		{"height too large", func(c *Configuration) { c.Height = MaxDimension + 1 }, ErrInvalidConfiguration},
		{"threshold above byte", func(c *Configuration) { v := 256; c.HighThreshold = &v }, ErrInvalidConfiguration},
		{"negative threshold", func(c *Configuration) { v := -1; c.LowThreshold = &v }, ErrInvalidConfiguration},
		{"negative margin", func(c *Configuration) { v := -1; c.BorderMargin = &v }, ErrInvalidConfiguration},
		{"margin without interior", func(c *Configuration) { v := 24; c.BorderMargin = &v }, ErrInvalidConfiguration},
		{"unknown history", func(c *Configuration) { c.History = "keep" }, ErrInvalidConfiguration},
		{"unknown mode", func(c *Configuration) { c.Mode = "parallel" }, ErrInvalidConfiguration},
		{"bad stall timeout", func(c *Configuration) { c.StallTimeout = "soon" }, ErrInvalidConfiguration},
		{"negative stall timeout", func(c *Configuration) { c.StallTimeout = "-1s" }, ErrInvalidConfiguration},
		{"strict inverted thresholds", func(c *Configuration) {
			c.StrictThresholds = true
			hi, lo := 10, 30
			c.HighThreshold, c.LowThreshold = &hi, &lo
		}, ErrThresholdOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfiguration()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.target)
		})
	}
}

func TestValidateAcceptsInvertedThresholdsWhenLenient(t *testing.T) {
	cfg := validConfiguration()
	hi, lo := 10, 30
	cfg.HighThreshold, cfg.LowThreshold = &hi, &lo
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.GetThresholds().Ordered())
}

func TestStallTimeoutDisabled(t *testing.T) {
	cfg := validConfiguration()
	cfg.StallTimeout = "0"
	d, err := cfg.GetStallTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &Configuration{Width: 16, Height: 16}
	cfg.Normalize()
	assert.Equal(t, DefaultConfiguration().GetThresholds(), cfg.GetThresholds())
	assert.Equal(t, HistoryClear, cfg.History)
	assert.NoError(t, cfg.Validate())
}
