//nolint:lll
package config

// Config represents the complete configuration for the boxseed CLI.
// It is loaded from configuration files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Dataset definition used when no --dataset flag is given
	Dataset string `mapstructure:"dataset" yaml:"dataset" json:"dataset"`

	// Resolution engine settings
	Engine EngineConfig `mapstructure:"engine" yaml:"engine" json:"engine"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Metrics export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// EngineConfig contains resolution engine settings.
type EngineConfig struct {
	Workers    int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	AutoOrient bool `mapstructure:"auto_orient" yaml:"auto_orient" json:"auto_orient"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// MetricsConfig contains metrics export settings. An empty File disables the
// export.
type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file" json:"file"`
}
