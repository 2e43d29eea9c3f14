package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Frame bounds accepted by the pipeline.
const (
	// MinDimension exceeds the largest kernel radius used downstream.
	MinDimension = 3
	MaxDimension = 8192
)

var (
	// ErrInvalidConfiguration is wrapped by every validation failure.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrThresholdOrder reports high < low when strict thresholds are enabled.
	ErrThresholdOrder = errors.New("high threshold below low threshold")
)

// HistoryPolicy decides what happens to line-buffer history at the start of
// a frame.
type HistoryPolicy string

const (
	// HistoryClear zeroes every stage's history on start-of-frame, so the
	// first rows of a frame see the same zero history as the very first frame.
	HistoryClear HistoryPolicy = "clear"
	// HistoryCarry keeps the previous frame's last rows in the buffers.
	HistoryCarry HistoryPolicy = "carry"
)

// ExecutionMode selects how the kernels are scheduled.
type ExecutionMode string

const (
	// ModeConcurrent runs one goroutine per stage.
	ModeConcurrent ExecutionMode = "concurrent"
	// ModeFused runs all per-sample kernels on a single goroutine.
	ModeFused ExecutionMode = "fused"
)

// Thresholds are the per-invocation hysteresis thresholds.
type Thresholds struct {
	High uint8
	Low  uint8
}

// Ordered reports whether High is not below Low.
func (t Thresholds) Ordered() bool {
	return t.High >= t.Low
}

// Configuration holds the pipeline settings. Zero-valued fields are filled
// from DefaultConfiguration by Normalize.
type Configuration struct {
	Width            int           `toml:"width" yaml:"width"`
	Height           int           `toml:"height" yaml:"height"`
	HighThreshold    *int          `toml:"high_threshold" yaml:"high_threshold"`
	LowThreshold     *int          `toml:"low_threshold" yaml:"low_threshold"`
	BorderMargin     *int          `toml:"border_margin" yaml:"border_margin"`
	History          HistoryPolicy `toml:"history" yaml:"history"`
	Mode             ExecutionMode `toml:"mode" yaml:"mode"`
	StallTimeout     string        `toml:"stall_timeout" yaml:"stall_timeout"` // duration string like "2s"
	StrictThresholds bool          `toml:"strict_thresholds" yaml:"strict_thresholds"`
	LogLevel         string        `toml:"log_level" yaml:"log_level"`
	LogFormat        string        `toml:"log_format" yaml:"log_format"`
}

func ptrInt(v int) *int { return &v }

// DefaultConfiguration returns the reference settings: thresholds 80/20, a
// five pixel border, cleared history and concurrent stages. Width and Height
// stay zero; the caller supplies them, usually from the first image.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		HighThreshold: ptrInt(80),
		LowThreshold:  ptrInt(20),
		BorderMargin:  ptrInt(5),
		History:       HistoryClear,
		Mode:          ModeConcurrent,
		StallTimeout:  "2s",
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// LoadConfiguration reads a TOML (.toml) or YAML (.yaml, .yml) file over the
// defaults. Fields missing from the file keep their default values.
func LoadConfiguration(path string) (*Configuration, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfiguration()
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfiguration, ext)
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize fills unset fields with their defaults.
func (c *Configuration) Normalize() {
	def := DefaultConfiguration()
	if c.HighThreshold == nil {
		c.HighThreshold = def.HighThreshold
	}
	if c.LowThreshold == nil {
		c.LowThreshold = def.LowThreshold
	}
	if c.BorderMargin == nil {
		c.BorderMargin = def.BorderMargin
	}
	if c.History == "" {
		c.History = def.History
	}
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.StallTimeout == "" {
		c.StallTimeout = def.StallTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
}

// Validate checks every field. It expects a normalized configuration.
func (c *Configuration) Validate() error {
	if c.Width < MinDimension || c.Width > MaxDimension {
		return fmt.Errorf("%w: width %d outside [%d, %d]", ErrInvalidConfiguration, c.Width, MinDimension, MaxDimension)
	}
	if c.Height < MinDimension || c.Height > MaxDimension {
		return fmt.Errorf("%w: height %d outside [%d, %d]", ErrInvalidConfiguration, c.Height, MinDimension, MaxDimension)
	}
	if err := checkByte("high_threshold", c.HighThreshold); err != nil {
		return err
	}
	if err := checkByte("low_threshold", c.LowThreshold); err != nil {
		return err
	}
	if c.BorderMargin == nil || *c.BorderMargin < 0 {
		return fmt.Errorf("%w: border_margin must be >= 0", ErrInvalidConfiguration)
	}
	if limit := (min(c.Width, c.Height) - 1) / 2; *c.BorderMargin > limit {
		return fmt.Errorf("%w: border_margin %d leaves no interior in a %dx%d frame",
			ErrInvalidConfiguration, *c.BorderMargin, c.Width, c.Height)
	}
	switch c.History {
	case HistoryClear, HistoryCarry:
	default:
		return fmt.Errorf("%w: unknown history policy %q", ErrInvalidConfiguration, c.History)
	}
	switch c.Mode {
	case ModeConcurrent, ModeFused:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfiguration, c.Mode)
	}
	if _, err := c.GetStallTimeout(); err != nil {
		return err
	}
	if c.StrictThresholds && !c.GetThresholds().Ordered() {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, ErrThresholdOrder)
	}
	return nil
}

func checkByte(name string, v *int) error {
	if v == nil || *v < 0 || *v > 255 {
		return fmt.Errorf("%w: %s must be within [0, 255]", ErrInvalidConfiguration, name)
	}
	return nil
}

// GetThresholds returns the configured thresholds.
func (c *Configuration) GetThresholds() Thresholds {
	var t Thresholds
	if c.HighThreshold != nil {
		t.High = uint8(*c.HighThreshold)
	}
	if c.LowThreshold != nil {
		t.Low = uint8(*c.LowThreshold)
	}
	return t
}

// GetBorderMargin returns the border margin, or the default when unset.
func (c *Configuration) GetBorderMargin() int {
	if c.BorderMargin == nil {
		return *DefaultConfiguration().BorderMargin
	}
	return *c.BorderMargin
}

// GetStallTimeout parses StallTimeout. Zero disables stall detection.
func (c *Configuration) GetStallTimeout() (time.Duration, error) {
	if c.StallTimeout == "" || c.StallTimeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StallTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: stall_timeout: %w", ErrInvalidConfiguration, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: stall_timeout must not be negative", ErrInvalidConfiguration)
	}
	return d, nil
}
