package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/foundry/navigator/internal/config"
)

// New creates the process logger from the logging settings. With SkipConfig
// set it returns the production JSON logger and ignores every other field.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := productionConfig()
	if !cfg.SkipConfig {
		if err := apply(&zcfg, cfg); err != nil {
			return nil, err
		}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Bootstrap returns the logger used before settings are resolved.
func Bootstrap() (*zap.Logger, error) {
	return New(config.DefaultLogging())
}

func productionConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false
	return cfg
}

func apply(zcfg *zap.Config, cfg config.LoggingConfig) error {
	if cfg.Development {
		dev := zap.NewDevelopmentConfig()
		dev.EncoderConfig.TimeKey = "timestamp"
		dev.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		*zcfg = dev
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}
	if len(cfg.OutputPaths) > 0 {
		zcfg.OutputPaths = cfg.OutputPaths
	}
	if len(cfg.ErrorOutputPaths) > 0 {
		zcfg.ErrorOutputPaths = cfg.ErrorOutputPaths
	}
	return nil
}
