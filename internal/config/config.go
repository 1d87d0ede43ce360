// Package config reads LYRA_* settings from the environment. A .env file in
// the working directory is loaded first; variables already set win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const Prefix = "LYRA"

type Config struct {
	APIURL   string `envconfig:"API_URL"`
	Dir      string `envconfig:"DIR"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// LogFile defaults to <dir>/lyra.log in the TUI and stderr elsewhere.
	LogFile string `envconfig:"LOG_FILE"`
	// LogEncoding is json or console.
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console"`

	AutosaveDelay time.Duration `envconfig:"AUTOSAVE_DELAY" default:"1s"`
	AutosaveRetry time.Duration `envconfig:"AUTOSAVE_RETRY" default:"5s"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	// Dev server only.
	DevAddr      string `envconfig:"DEV_ADDR" default:"127.0.0.1:8000"`
	DevJWTSecret string `envconfig:"DEV_JWT_SECRET" default:"lyra-dev-secret"`
}

// Load reads envFiles (default ".env") and then the environment. Missing env
// files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read %s_* environment: %w", Prefix, err)
	}
	if cfg.AutosaveDelay <= 0 {
		return Config{}, fmt.Errorf("%s_AUTOSAVE_DELAY must be positive, got %s", Prefix, cfg.AutosaveDelay)
	}
	if cfg.AutosaveRetry < 0 || cfg.HTTPTimeout < 0 {
		return Config{}, fmt.Errorf("%s_AUTOSAVE_RETRY and %s_HTTP_TIMEOUT must not be negative", Prefix, Prefix)
	}
	return cfg, nil
}
