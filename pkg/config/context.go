package config

import (
	"context"
	"fmt"
)

type ctxKey struct{}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg Config) context.Context {
	cfg.ApplyDefaults()
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the configuration attached to ctx, or the process
// defaults.
func FromContext(ctx context.Context) Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(ctxKey{}).(Config); ok {
			return cfg
		}
	}
	return Defaults()
}

// Override returns a context whose configuration is the one of ctx with key
// set to value.
func Override(ctx context.Context, key string, value any) (context.Context, error) {
	cfg, err := FromContext(ctx).Set(key, value)
	if err != nil {
		return ctx, err
	}
	return WithConfig(ctx, cfg), nil
}

// Set returns a copy of c with key set to value. The directory key is read
// only; unknown keys and values of the wrong type are rejected.
func (c Config) Set(key string, value any) (Config, error) {
	switch key {
	case KeyDefaultSchema, KeyDialect, KeyGraphEngine:
		s, ok := value.(string)
		if !ok {
			return c, &Error{Key: key, Reason: fmt.Sprintf("expected string, got %T", value)}
		}
		switch key {
		case KeyDefaultSchema:
			c.DefaultSchema = s
		case KeyDialect:
			c.Dialect = s
		default:
			c.GraphEngine = s
		}
	case KeyTSQLNoSemicolon, KeyLateralColumnAlias:
		b, ok := value.(bool)
		if !ok {
			return c, &Error{Key: key, Reason: fmt.Sprintf("expected bool, got %T", value)}
		}
		if key == KeyTSQLNoSemicolon {
			c.TSQLNoSemicolon = b
		} else {
			c.LateralColumnAlias = b
		}
	case KeyDirectory:
		return c, &Error{Key: key, Reason: "read-only, set it with " + EnvPrefix + "DIRECTORY"}
	default:
		return c, &Error{Key: key, Reason: "unknown key"}
	}
	return c, nil
}
