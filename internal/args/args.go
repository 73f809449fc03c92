// Package args parses Fantasia's command line.
//
// Every flag except --config is an override that config.MergeFlags applies
// on top of the file and environment layers.  Only flags the user actually
// passes take effect.  Unknown flags and stray positional arguments are
// rejected: the invoker most likely meant a real option, so carrying on
// would be surprising.
package args

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "fantasia.toml"

// ErrArgParse wraps every command-line failure.
var ErrArgParse = errors.New("invalid arguments")

// Args is the parsed command line.
type Args struct {
	Config string         // --config, or DefaultConfigPath
	Flags  *pflag.FlagSet // parsed set, consumed by config.MergeFlags
}

// NewFlagSet declares every supported flag.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("fantasia", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.String("config", DefaultConfigPath, "override config file")
	fs.String("host", "", "override Fantasia host")
	fs.Uint16("port", 0, "override Fantasia port")
	fs.String("pguser", "", "override Postgres superuser")
	fs.String("pgpassword", "", "override Postgres superuser password")
	fs.String("pghost", "", "override Postgres host")
	fs.Uint16("pgport", 0, "override Postgres port")
	fs.String("pgdatabase", "", "override Postgres database")
	return fs
}

// Usage renders the flag help text.
func Usage() string { return NewFlagSet().FlagUsages() }

// Parse parses argv (without the program name).  pflag.ErrHelp is passed
// through wrapped so callers can print Usage and exit cleanly.
func Parse(argv []string, log *zap.Logger) (*Args, error) {
	fs := NewFlagSet()
	fs.SetOutput(io.Discard)

	if err := fs.Parse(argv); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			log.Error("invalid argument", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %w", ErrArgParse, err)
	}

	if rest := fs.Args(); len(rest) > 0 {
		for _, extra := range rest {
			log.Error("invalid argument", zap.String("arg", extra))
		}
		return nil, fmt.Errorf("%w: unexpected arguments %q", ErrArgParse, rest)
	}

	path, err := fs.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgParse, err)
	}
	return &Args{Config: path, Flags: fs}, nil
}
