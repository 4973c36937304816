package config

import "errors"

// Error categories returned by this package. They are wrapped with context so
// callers can classify failures with errors.Is.
var (
	// ErrRead is returned when an existing config file cannot be read.
	ErrRead = errors.New("read config file")
	// ErrParse is returned when a config file is not a valid YAML mapping.
	ErrParse = errors.New("parse config file")
	// ErrInvalidMountPath is returned when a mount path cannot be parsed.
	ErrInvalidMountPath = errors.New("invalid mount path")
	// ErrDecode is returned when settings data does not fit the requested shape.
	ErrDecode = errors.New("decode settings")
	// ErrValidation is returned when decoded settings fail validation rules.
	ErrValidation = errors.New("settings validation failed")
)
