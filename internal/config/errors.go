package config

import "errors"

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")
