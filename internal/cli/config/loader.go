package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	pkgconfig "github.com/leapstack-labs/sqllineage/pkg/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store config in context.
type configKey struct{}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
)

// flagKeys maps flag names to config keys. Flags not listed here are
// command arguments, not configuration.
var flagKeys = map[string]string{
	"default-schema":    pkgconfig.KeyDefaultSchema,
	"dialect":           pkgconfig.KeyDialect,
	"tsql-no-semicolon": pkgconfig.KeyTSQLNoSemicolon,
	"lateral-alias":     pkgconfig.KeyLateralColumnAlias,
	"engine":            pkgconfig.KeyGraphEngine,
	"level":             "level",
	"output":            "output",
	"metadata":          "metadata",
	"metadata-dsn":      "metadata_dsn",
	"history":           "history_path",
	"verbose":           "verbose",
}

// ConfigKey returns the config key a flag sets, if any.
func ConfigKey(flag string) (string, bool) {
	key, ok := flagKeys[flag]
	return key, ok
}

// ConfigKeys lists every key that a default, a flag or the environment can
// set, sorted.
func ConfigKeys() []string {
	seen := map[string]bool{}
	for key := range DefaultValues() {
		seen[key] = true
	}
	for _, key := range flagKeys {
		seen[key] = true
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// EnvVar returns the environment variable read for key.
func EnvVar(key string) string {
	return pkgconfig.EnvPrefix + strings.ToUpper(key)
}

// envKey is the inverse of EnvVar.
func envKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, pkgconfig.EnvPrefix))
}

// findConfigFile finds the config file to use.
// Priority: explicit path > sqllineage.yaml > sqllineage.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"sqllineage.yaml", "sqllineage.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// DefaultValues returns the default of every configuration key.
func DefaultValues() map[string]any {
	return map[string]any{
		pkgconfig.KeyDefaultSchema:      "",
		pkgconfig.KeyDialect:            pkgconfig.DefaultDialect,
		pkgconfig.KeyTSQLNoSemicolon:    false,
		pkgconfig.KeyLateralColumnAlias: false,
		pkgconfig.KeyGraphEngine:        pkgconfig.DefaultGraphEngine,
		"level":                         DefaultLevel,
		"output":                        DefaultOutput,
		"history_path":                  DefaultHistoryFile,
		"verbose":                       false,
	}
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(DefaultValues(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (SQLLINEAGE_ prefix)
	// Transform: SQLLINEAGE_DEFAULT_SCHEMA -> default_schema
	if err := k.Load(env.Provider(pkgconfig.EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := ConfigKey(f.Name)
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	for i, t := range cfg.Tables {
		for j, c := range t.Columns {
			cfg.Tables[i].Columns[j] = strings.TrimSpace(c)
		}
	}

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig. A config with the
// defaults applied is returned when none is stored.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Dialect:      pkgconfig.DefaultDialect,
		GraphEngine:  pkgconfig.DefaultGraphEngine,
		Level:        DefaultLevel,
		OutputFormat: DefaultOutput,
		HistoryPath:  DefaultHistoryFile,
	}
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
