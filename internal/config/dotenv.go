package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DefaultEnvFile is looked up when the config names no env_file.
const DefaultEnvFile = ".env"

// Dotenv loads a .env-style file into the process environment.  Variables
// already set are not overwritten.
//
// An explicit path must exist and parse.  Without one, DefaultEnvFile is
// searched from the working directory upwards; not finding it is fine, but a
// malformed file that is found is still an error.
func Dotenv(path string, log *zap.Logger) error {
	if path == "" {
		found, ok := findUp(DefaultEnvFile)
		if !ok {
			log.Debug("no env file found", zap.String("name", DefaultEnvFile))
			return nil
		}
		path = found
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEnvFile, path, err)
	}
	log.Info("env file loaded", zap.String("file", path))
	return nil
}

// findUp climbs from the working directory until name is found or the
// filesystem root is reached.
func findUp(name string) (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			return "", false
		}
		dir = parent
	}
}
