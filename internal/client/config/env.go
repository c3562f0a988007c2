package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DotenvFile is read into the environment when present. Variables already
// set win over the file.
var DotenvFile = ".env"

// parseEnv overlays cfg with MINDSHIFT_* variables. Unset variables leave
// the current value alone.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(DotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", DotenvFile, err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
