// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// The caller runs Validate once every layer has been merged.  Any tag
// mismatch aborts startup, so the server never runs with an empty host, a
// zero Postgres port, or a pool whose minimum exceeds its maximum.
//
// Notes
// -----
//   - Pool options are pointers; `omitempty` skips unset ones.
//   - The min/max pool relation is a struct-level rule registered below.

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterStructValidation(poolOptionsRule, PoolOptions{})
	return val
}

// poolOptionsRule rejects min_connections > max_connections when both are
// set.
func poolOptionsRule(sl validator.StructLevel) {
	o := sl.Current().Interface().(PoolOptions)
	if o.MinConnections == nil || o.MaxConnections == nil {
		return
	}
	if *o.MinConnections > *o.MaxConnections {
		sl.ReportError(o.MinConnections, "MinConnections", "min_connections",
			"ltefield", "MaxConnections")
	}
}

//
// public API
//

// Validate returns an ErrInvalid-wrapped error describing every failed rule,
// or nil.
func (c *Config) Validate() error {
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
