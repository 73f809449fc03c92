// internal/config/loader.go
//
// Layered configuration loader.
//
/*
Context
--------
Fantasia's settings come from four layers, highest precedence last:

  1. Default()                 - built-in values.
  2. `fantasia.toml`           - Load(path).
  3. Environment variables     - MergeEnv(cfg).
  4. Command-line flags        - MergeFlags(cfg, flags).

Every layer is read into its own Koanf instance and decoded onto the
existing struct.  mapstructure only touches fields whose keys are present,
so an absent source value leaves the previous layer's value in place.  The
precedence contract CLI > env > file > default therefore holds per field.

The file layer is strict: keys the model does not define are reported as
an UnknownFieldError instead of being silently dropped.

Instrumentation
---------------
  - DEBUG - each layer applied, with the number of keys it supplied.
  - ERROR - file parse and decode failures.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	koanf "github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

/*──────────────────────────── source maps ─────────────────────────────────*/

// envKeys maps the supported environment variables onto config keys.
var envKeys = map[string]string{
	"POSTGRES_USER":     "postgres.user",
	"PGUSER":            "postgres.user",
	"POSTGRES_PASSWORD": "postgres.password",
	"PGPASSWORD":        "postgres.password",
	"PGHOST":            "postgres.host",
	"PGPORT":            "postgres.port",
	"POSTGRES_DB":       "postgres.database",
	"PGDATABASE":        "postgres.database",
}

// envAliases maps an alias to its primary name.  The alias is ignored when
// the primary is also set.
var envAliases = map[string]string{
	"PGUSER":     "POSTGRES_USER",
	"PGPASSWORD": "POSTGRES_PASSWORD",
	"PGDATABASE": "POSTGRES_DB",
}

// flagKeys maps override flags onto config keys.  --config is consumed by
// the caller and has no key.
var flagKeys = map[string]string{
	"host":       "fantasia.host",
	"port":       "fantasia.port",
	"pguser":     "postgres.user",
	"pgpassword": "postgres.password",
	"pghost":     "postgres.host",
	"pgport":     "postgres.port",
	"pgdatabase": "postgres.database",
}

/*─────────────────────────────── layers ───────────────────────────────────*/

// Load returns Default() overlaid with the TOML file at path.
func Load(path string, log *zap.Logger) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("config stat %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		log.Error("config toml load failed", zap.String("file", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	cfg := Default()
	unused, err := decode(k, cfg, false)
	if err != nil {
		log.Error("config decode failed", zap.String("file", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if len(unused) > 0 {
		return nil, &UnknownFieldError{Source: path, Keys: unused}
	}

	log.Debug("config file applied", zap.String("file", path), zap.Int("keys", len(k.Keys())))
	return cfg, nil
}

// MergeEnv overwrites Postgres settings from POSTGRES_* / PG* variables.
// Unset variables leave cfg untouched.
func MergeEnv(cfg *Config, log *zap.Logger) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrParse, err)
	}
	if _, err := decode(k, cfg, true); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrParse, err)
	}

	log.Debug("config env applied", zap.Strings("keys", k.Keys()))
	return nil
}

// MergeFlags overwrites settings from flags the user actually passed.
// Flags left at their zero default are ignored.
func MergeFlags(cfg *Config, flags *pflag.FlagSet, log *zap.Logger) error {
	k := koanf.New(".")
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", nil, flagKey), nil); err != nil {
		return fmt.Errorf("%w: flags: %v", ErrParse, err)
	}
	if _, err := decode(k, cfg, true); err != nil {
		return fmt.Errorf("%w: flags: %v", ErrParse, err)
	}

	log.Debug("config flags applied", zap.Strings("keys", k.Keys()))
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// envKey is the env.Provider callback.  Unknown names and shadowed
// aliases return "" so the provider drops them.
func envKey(name string) string {
	key, ok := envKeys[name]
	if !ok {
		return ""
	}
	if primary, alias := envAliases[name]; alias {
		if _, set := os.LookupEnv(primary); set {
			return ""
		}
	}
	return key
}

// flagKey is the posflag callback.
func flagKey(f *pflag.Flag) (string, interface{}) {
	key, ok := flagKeys[f.Name]
	if !ok || !f.Changed {
		return "", nil
	}
	return key, f.Value.String()
}

// decode applies k onto cfg in place and returns the keys that matched no
// field.  weak allows string values, which is what env and flags deliver;
// the file layer must supply properly typed values.
func decode(k *koanf.Koanf, cfg *Config, weak bool) ([]string, error) {
	var md mapstructure.Metadata
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.DecodeHookFuncType(intRange),
			Metadata:         &md,
			Result:           cfg,
			WeaklyTypedInput: weak,
		},
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}

// intRange rejects integers that do not fit the target field.  mapstructure
// converts int64 to narrower or unsigned kinds without a range check, so
// `port = 70000` would otherwise wrap to 4464.
func intRange(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	var n int64
	switch v := data.(type) {
	case int64:
		n = v
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	default:
		return data, nil
	}

	zero := reflect.Zero(to)
	switch to.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n < 0 || zero.OverflowUint(uint64(n)) {
			return nil, fmt.Errorf("%d out of range for %s", n, to)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if zero.OverflowInt(n) {
			return nil, fmt.Errorf("%d out of range for %s", n, to)
		}
	}
	return data, nil
}
