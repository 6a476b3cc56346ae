package config

import (
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment overrides, e.g.
// RINKCAL_LISTEN, RINKCAL_TIMEZONE, RINKCAL_FRESHNESS_MINUTES.
const envPrefix = "RINKCAL_"

// applyEnv layers RINKCAL_* environment variables over cfg. Env keys map
// to flat koanf struct tags: RINKCAL_FRESHNESS_MINUTES -> freshness_minutes.
// The team list is file-only and cannot be overridden from the environment.
func applyEnv(cfg *Config) (*Config, error) {
	k := koanf.New(".")

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	cfg.Normalize()
	return cfg, nil
}
