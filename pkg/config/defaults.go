package config

// Default configuration values.
const (
	DefaultDialect     = "ansi"
	DefaultGraphEngine = "memory"
)

func defaultValues() map[string]any {
	return map[string]any{
		KeyDefaultSchema:      "",
		KeyDialect:            DefaultDialect,
		KeyTSQLNoSemicolon:    false,
		KeyLateralColumnAlias: false,
		KeyGraphEngine:        DefaultGraphEngine,
		KeyDirectory:          "",
	}
}

// ApplyDefaults fills unset string options.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Dialect == "" {
		c.Dialect = DefaultDialect
	}
	if c.GraphEngine == "" {
		c.GraphEngine = DefaultGraphEngine
	}
}
