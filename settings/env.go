package settings

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name, e.g.
// ROOMSYNC_BRIDGE_POLL_INTERVAL_MS.
const EnvPrefix = "ROOMSYNC_"

// FromEnv reads the process environment. Unset variables leave fields nil.
func FromEnv() (Settings, error) {
	return parseEnv(env.Options{Prefix: EnvPrefix})
}

// FromEnvMap reads variables from vars instead of the process environment.
func FromEnvMap(vars map[string]string) (Settings, error) {
	return parseEnv(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func parseEnv(opts env.Options) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("settings: env: %w", err)
	}
	return s, nil
}
