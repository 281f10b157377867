package config

import "errors"

// ErrLoadConfig wraps failures reading the config file or environment.
// ErrInvalidConfig wraps values rejected by Validate.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLoadConfig    = errors.New("cannot load configuration")
)
