package config

import (
	"fmt"
	"io"
)

// redacted replaces a Secret in every default rendering.
const redacted = "[REDACTED]"

// Secret is a string that refuses to print itself.  fmt verbs, JSON/text
// encoders, and zap all see the placeholder; only Expose returns the value.
type Secret string

// Expose returns the raw value.  Call it only where the cleartext is
// actually required, e.g. when building a connection URL.
func (s Secret) Expose() string { return string(s) }

// IsZero reports whether no value was configured.
func (s Secret) IsZero() bool { return s == "" }

func (s Secret) String() string { return redacted }

func (s Secret) GoString() string { return "config.Secret(" + redacted + ")" }

// Format writes the placeholder for every verb and flag, so even verbs
// that do not apply to strings (%d, %x) cannot echo the value.  %#v keeps
// the GoString form.
func (s Secret) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = io.WriteString(f, s.GoString())
		return
	}
	_, _ = io.WriteString(f, redacted)
}

func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
