// internal/config/model.go
//
// Typed configuration model for Fantasia.
//
// Context
// -------
// These structs define the shape of the tree that `loader.go` builds from
// four layers, lowest precedence first:
//
//   - built-in defaults                       - Default(),
//   - `fantasia.toml`                         - primary static file,
//   - POSTGRES_* / PG* environment variables  - MergeEnv,
//   - command-line flags                      - MergeFlags.
//
// Each layer only overwrites the keys it actually supplies, so the merged
// struct is always fully populated.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `toml:"…"`.  Koanf decodes through
//     mapstructure and ignores format-specific tags.
//   - Pool options are pointers.  Nil means "use the driver default".
//   - Durations in `[postgres.options]` are whole seconds.

package config

//
// Fantasia section
//

// Fantasia holds web-server tunables.
type Fantasia struct {
	Host        string `koanf:"host"         validate:"required"`
	Port        uint16 `koanf:"port"`
	EnvFile     string `koanf:"env_file"`
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,hostname_port"`
}

//
// Postgres section
//

// PoolOptions is the owned shape of the pool-tuning table.  It is converted
// into the driver's pool config by the database package.
type PoolOptions struct {
	TestBeforeAcquire *bool   `koanf:"test_before_acquire"`
	AcquireTimeout    *uint64 `koanf:"acquire_timeout"`
	MinConnections    *uint32 `koanf:"min_connections"`
	MaxConnections    *uint32 `koanf:"max_connections" validate:"omitempty,gte=1"`
	MaxLifetime       *uint64 `koanf:"max_lifetime"`
	IdleTimeout       *uint64 `koanf:"idle_timeout"`
}

// Postgres holds connection settings.  Password is a Secret so it never
// shows up in logs or %v output.
type Postgres struct {
	User     string      `koanf:"user"     validate:"required"`
	Password Secret      `koanf:"password"`
	Host     string      `koanf:"host"     validate:"required"`
	Port     uint16      `koanf:"port"     validate:"required"`
	Database string      `koanf:"database" validate:"required"`
	Options  PoolOptions `koanf:"options"`
}

//
// Log section
//

// Log selects the level and, optionally, a directory for rotated JSON logs.
// An empty Dir keeps logging on the console only.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

//
// Root aggregate
//

// Config is built once at startup and treated as immutable afterwards.
type Config struct {
	Fantasia Fantasia `koanf:"fantasia"`
	Postgres Postgres `koanf:"postgres"`
	Log      Log      `koanf:"log"`
}

// Default returns the built-in defaults.  Every field that the file, the
// environment, or the flags may leave out has a value here.
func Default() *Config {
	return &Config{
		Fantasia: Fantasia{
			Host: "localhost",
			Port: 8080,
		},
		Postgres: Postgres{
			User:     "postgres",
			Host:     "localhost",
			Port:     5432,
			Database: "pgdb",
		},
		Log: Log{
			Level: "info",
		},
	}
}
