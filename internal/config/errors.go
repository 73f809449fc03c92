package config

import (
	"errors"
	"fmt"
	"strings"
)

// Load-time failures.  Callers match them with errors.Is.
var (
	ErrNotFound     = errors.New("config file not found")
	ErrParse        = errors.New("config parse error")
	ErrUnknownField = errors.New("unknown config field")
	ErrInvalid      = errors.New("invalid config")
	ErrEnvFile      = errors.New("invalid env file")
)

// UnknownFieldError lists keys present in the source that the model does
// not define.  It matches ErrUnknownField.
type UnknownFieldError struct {
	Source string
	Keys   []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: unknown field(s): %s", e.Source, strings.Join(e.Keys, ", "))
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }
