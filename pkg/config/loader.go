package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read as defaults.
const EnvPrefix = "SQLLINEAGE_"

var (
	defaultsOnce sync.Once
	defaults     Config
	defaultsErr  error
)

// Load reads the options from built-in defaults overlaid with SQLLINEAGE_*
// environment variables. SQLLINEAGE_DEFAULT_SCHEMA=ods sets default_schema.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Transform: SQLLINEAGE_DEFAULT_SCHEMA -> default_schema
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return Config{}, &Error{Key: "env", Reason: err.Error()}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Defaults returns the process wide defaults, loading them on first use.
// A broken environment falls back to the built-in defaults; the load error
// stays available from DefaultsErr.
func Defaults() Config {
	defaultsOnce.Do(func() {
		defaults, defaultsErr = Load()
		if defaultsErr != nil {
			defaults = Config{}
			defaults.ApplyDefaults()
		}
	})
	return defaults
}

// DefaultsErr returns the error met while loading the process defaults.
func DefaultsErr() error {
	Defaults()
	return defaultsErr
}
