package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/defaults"
	"github.com/MeKo-Tech/boxseed/internal/imagedims"
	"github.com/MeKo-Tech/boxseed/internal/report"
)

const (
	debugLevel = "debug"
	infoLevel  = "info"
	warnLevel  = "warn"
	errorLevel = "error"
)

var validLogLevels = []string{debugLevel, infoLevel, warnLevel, errorLevel}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: infoLevel,
		Verbose:  false,
		Engine: EngineConfig{
			Workers:    1,
			AutoOrient: false,
		},
		Output: OutputConfig{
			Format: report.FormatText,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if !report.ValidFormat(c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s, %s, %s)",
			c.Output.Format, report.FormatJSON, report.FormatCSV, report.FormatText)
	}

	if c.Engine.Workers <= 0 {
		return fmt.Errorf("invalid engine workers: %d (must be positive)", c.Engine.Workers)
	}

	return nil
}

// SlogLevel maps the configured log level onto a slog.Level. Verbose forces
// debug output.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.LogLevel) {
	case debugLevel:
		return slog.LevelDebug
	case warnLevel:
		return slog.LevelWarn
	case errorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EngineOptions converts the engine settings into defaults.Engine options.
func (c *Config) EngineOptions(logger *slog.Logger, observer defaults.Observer) []defaults.Option {
	opts := []defaults.Option{
		defaults.WithWorkers(c.Engine.Workers),
		defaults.WithDimensions(imagedims.ForOrientation(c.Engine.AutoOrient)),
	}
	if logger != nil {
		opts = append(opts, defaults.WithLogger(logger))
	}
	if observer != nil {
		opts = append(opts, defaults.WithObserver(observer))
	}
	return opts
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
