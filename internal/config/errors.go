package config

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrInvalidYAML       = errors.New("invalid YAML syntax")
	ErrValidationFailed  = errors.New("configuration validation failed")
	ErrNoProviders       = errors.New("no LLM providers configured")
)

// LoadError wraps configuration loading errors with file context (teacher's
// pkg/config/errors.go LoadError).
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("failed to load %s: %v", e.File, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError wraps err with the file that failed to load.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}
