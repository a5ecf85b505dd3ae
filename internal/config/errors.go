package config

import "errors"

// ErrInvalidValue indicates a configuration value outside its allowed set.
var ErrInvalidValue = errors.New("invalid configuration value")
