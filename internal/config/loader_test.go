package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/fantasia/internal/args"
)

// writeTOML drops body into a temp fantasia.toml and returns its path.
func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fantasia.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearPGEnv unsets every variable MergeEnv reads for the test's duration.
func clearPGEnv(t *testing.T) {
	t.Helper()
	for name := range envKeys {
		t.Setenv(name, "") // registers restore
		require.NoError(t, os.Unsetenv(name))
	}
}

const fullTOML = `
[fantasia]
host = "0.0.0.0"
port = 3000
env_file = "dev.env"

[postgres]
user = "file_user"
password = "file_pw"
host = "db.internal"
port = 5433
database = "file_db"

[postgres.options]
test_before_acquire = true
acquire_timeout = 5
min_connections = 1
max_connections = 8
max_lifetime = 1800
idle_timeout = 600

[log]
level = "debug"
`

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(writeTOML(t, fullTOML), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Fantasia.Host)
	assert.Equal(t, uint16(3000), cfg.Fantasia.Port)
	assert.Equal(t, "dev.env", cfg.Fantasia.EnvFile)
	assert.Equal(t, "file_user", cfg.Postgres.User)
	assert.Equal(t, "file_pw", cfg.Postgres.Password.Expose())
	assert.Equal(t, uint16(5433), cfg.Postgres.Port)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts := cfg.Postgres.Options
	require.NotNil(t, opts.TestBeforeAcquire)
	assert.True(t, *opts.TestBeforeAcquire)
	require.NotNil(t, opts.MaxConnections)
	assert.Equal(t, uint32(8), *opts.MaxConnections)
	require.NotNil(t, opts.IdleTimeout)
	assert.Equal(t, uint64(600), *opts.IdleTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingSectionsUseDefaults(t *testing.T) {
	cfg, err := Load(writeTOML(t, "[fantasia]\nport = 4000\n"), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, uint16(4000), cfg.Fantasia.Port)
	assert.Equal(t, "localhost", cfg.Fantasia.Host)
	assert.Equal(t, "postgres", cfg.Postgres.User)
	assert.Equal(t, uint16(5432), cfg.Postgres.Port)
	assert.Equal(t, "pgdb", cfg.Postgres.Database)
	assert.Nil(t, cfg.Postgres.Options.MaxConnections)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeTOML(t, ""), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownTopLevelKey(t *testing.T) {
	_, err := Load(writeTOML(t, "bogus = 1\n[fantasia]\nport = 1\n"), zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownField)

	var ufe *UnknownFieldError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, []string{"bogus"}, ufe.Keys)
}

func TestLoad_UnknownNestedKey(t *testing.T) {
	_, err := Load(writeTOML(t, "[postgres.options]\nmax_conns = 3\n"), zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), "max_conns")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), zap.NewNop())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeTOML(t, "[fantasia\nhost = "), zap.NewNop())
	require.ErrorIs(t, err, ErrParse)
}

func TestLoad_WrongValueType(t *testing.T) {
	_, err := Load(writeTOML(t, "[fantasia]\nport = \"eighty\"\n"), zap.NewNop())
	require.ErrorIs(t, err, ErrParse)
}

func TestLoad_IntegerOutOfRange(t *testing.T) {
	for _, body := range []string{
		"[fantasia]\nport = 70000\n",
		"[fantasia]\nport = -1\n",
		"[postgres]\nport = 65537\n",
		"[postgres.options]\nmax_connections = -3\n",
		"[postgres.options]\nmin_connections = 4294967296\n",
		"[postgres.options]\nacquire_timeout = -30\n",
	} {
		_, err := Load(writeTOML(t, body), zap.NewNop())
		assert.ErrorIs(t, err, ErrParse, body)
	}
}

func TestLoad_IntegerBounds(t *testing.T) {
	cfg, err := Load(writeTOML(t, "[fantasia]\nport = 65535\n[postgres]\nport = 0\n"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), cfg.Fantasia.Port)
	assert.Equal(t, uint16(0), cfg.Postgres.Port)
}

func TestMergeEnv_PortOutOfRange(t *testing.T) {
	clearPGEnv(t)
	t.Setenv("PGPORT", "70000")

	err := MergeEnv(Default(), zap.NewNop())
	require.ErrorIs(t, err, ErrParse)
}

func TestMergeEnv_OverridesFile(t *testing.T) {
	clearPGEnv(t)
	t.Setenv("PGHOST", "env.host")
	t.Setenv("PGPORT", "6000")
	t.Setenv("POSTGRES_DB", "env_db")

	cfg, err := Load(writeTOML(t, fullTOML), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, MergeEnv(cfg, zap.NewNop()))

	assert.Equal(t, "env.host", cfg.Postgres.Host)
	assert.Equal(t, uint16(6000), cfg.Postgres.Port)
	assert.Equal(t, "env_db", cfg.Postgres.Database)
	// Not supplied by env: file values survive.
	assert.Equal(t, "file_user", cfg.Postgres.User)
	assert.Equal(t, "file_pw", cfg.Postgres.Password.Expose())
	assert.Equal(t, "0.0.0.0", cfg.Fantasia.Host)
}

func TestMergeEnv_PrimaryWinsOverAlias(t *testing.T) {
	clearPGEnv(t)
	t.Setenv("POSTGRES_USER", "primary")
	t.Setenv("PGUSER", "alias")
	t.Setenv("PGPASSWORD", "alias_pw")

	cfg := Default()
	require.NoError(t, MergeEnv(cfg, zap.NewNop()))

	assert.Equal(t, "primary", cfg.Postgres.User)
	assert.Equal(t, "alias_pw", cfg.Postgres.Password.Expose())
}

func TestMergeEnv_NothingSet(t *testing.T) {
	clearPGEnv(t)

	cfg := Default()
	require.NoError(t, MergeEnv(cfg, zap.NewNop()))
	assert.Equal(t, Default(), cfg)
}

func TestMergeEnv_BadPort(t *testing.T) {
	clearPGEnv(t)
	t.Setenv("PGPORT", "not-a-port")

	err := MergeEnv(Default(), zap.NewNop())
	require.ErrorIs(t, err, ErrParse)
}

func TestPrecedence_PerField(t *testing.T) {
	clearPGEnv(t)
	// Every Postgres field is set in the file and the environment.
	t.Setenv("POSTGRES_USER", "env_user")
	t.Setenv("POSTGRES_PASSWORD", "env_pw")
	t.Setenv("PGHOST", "env.host")
	t.Setenv("PGPORT", "6000")
	t.Setenv("POSTGRES_DB", "env_db")

	tests := []struct {
		name string
		argv []string
		get  func(*Config) string
		cli  string
		env  string
	}{
		{"user", []string{"--pguser", "cli_user"}, func(c *Config) string { return c.Postgres.User }, "cli_user", "env_user"},
		{"password", []string{"--pgpassword", "cli_pw"}, func(c *Config) string { return c.Postgres.Password.Expose() }, "cli_pw", "env_pw"},
		{"host", []string{"--pghost", "cli.host"}, func(c *Config) string { return c.Postgres.Host }, "cli.host", "env.host"},
		{"port", []string{"--pgport", "7000"}, func(c *Config) string { return strconv.Itoa(int(c.Postgres.Port)) }, "7000", "6000"},
		{"database", []string{"--pgdatabase", "cli_db"}, func(c *Config) string { return c.Postgres.Database }, "cli_db", "env_db"},
	}

	path := writeTOML(t, fullTOML)
	for _, tt := range tests {
		t.Run(tt.name+"/cli wins", func(t *testing.T) {
			cfg := loadAll(t, path, tt.argv)
			assert.Equal(t, tt.cli, tt.get(cfg))
		})
		t.Run(tt.name+"/env beats file", func(t *testing.T) {
			cfg := loadAll(t, path, nil)
			assert.Equal(t, tt.env, tt.get(cfg))
		})
	}
}

func TestMergeFlags_FantasiaOverrides(t *testing.T) {
	clearPGEnv(t)
	cfg := loadAll(t, writeTOML(t, fullTOML), []string{"--host", "::1", "--port", "0"})

	assert.Equal(t, "::1", cfg.Fantasia.Host)
	assert.Equal(t, uint16(0), cfg.Fantasia.Port)
	assert.Equal(t, "file_user", cfg.Postgres.User)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Fantasia.Host = ""
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = Default()
	lo, hi := uint32(10), uint32(2)
	cfg.Postgres.Options.MinConnections = &lo
	cfg.Postgres.Options.MaxConnections = &hi
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "MinConnections")

	cfg = Default()
	cfg.Log.Level = "chatty"
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = Default()
	cfg.Fantasia.MetricsAddr = "127.0.0.1:9100"
	require.NoError(t, cfg.Validate())
}

// loadAll runs the file, env, and flag layers in startup order.
func loadAll(t *testing.T, path string, argv []string) *Config {
	t.Helper()
	log := zap.NewNop()

	a, err := args.Parse(argv, log)
	require.NoError(t, err)

	cfg, err := Load(path, log)
	require.NoError(t, err)
	require.NoError(t, MergeEnv(cfg, log))
	require.NoError(t, MergeFlags(cfg, a.Flags, log))
	return cfg
}
