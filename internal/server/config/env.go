package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays values from the process environment onto config.
// Unset variables leave the current values untouched; token lifetime is read
// from ACCESS_TOKEN_EXPIRE_MINUTES as whole minutes.
func parseEnv(config *Config) {
	s := settingsFrom(config)
	if err := env.Parse(&s); err != nil {
		panic(fmt.Errorf("parse env: %w", err))
	}
	s.apply(config)
}
