package config

const (
	// DefaultEnvPrefix is the prefix of environment variables that override
	// top-level settings keys.
	DefaultEnvPrefix = "NAVIGATOR_"
	// DefaultEntrypoint names the entrypoint started when none is configured.
	DefaultEntrypoint = "api"
)

// Settings is the root configuration object. Keys without a dedicated field
// are kept in Extra so typed sub-settings can be mounted from them.
type Settings struct {
	Entrypoint string         `koanf:"entrypoint" validate:"required"`
	Logging    LoggingConfig  `koanf:"logging"`
	Extra      map[string]any `koanf:",remain,omitempty"`
}

// LoggingConfig controls how the process logger is built. When SkipConfig is
// set the built-in production JSON logger is used unchanged.
type LoggingConfig struct {
	SkipConfig       bool           `koanf:"skip_config"`
	Level            string         `koanf:"level" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	Encoding         string         `koanf:"encoding" validate:"omitempty,oneof=json console"`
	Development      bool           `koanf:"development"`
	OutputPaths      []string       `koanf:"output_paths"`
	ErrorOutputPaths []string       `koanf:"error_output_paths"`
	Extra            map[string]any `koanf:",remain,omitempty"`
}

// DefaultSettings returns the lowest-precedence layer of the settings tree.
func DefaultSettings() Settings {
	return Settings{
		Entrypoint: DefaultEntrypoint,
		Logging:    DefaultLogging(),
	}
}

// DefaultLogging returns the logging section used before settings are resolved.
func DefaultLogging() LoggingConfig {
	return LoggingConfig{
		SkipConfig:       true,
		Level:            "debug",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// SetDefaults resets s to DefaultSettings before data is decoded onto it.
func (s *Settings) SetDefaults() {
	*s = DefaultSettings()
}
