package graph

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Operator)
)

// Register adds a graph engine factory to the registry.
// Called by engine implementations in their init() functions.
func Register(name string, factory func() Operator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves an engine factory by name.
func Get(name string) (func() Operator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates an empty graph of the named engine. An empty name selects the
// memory engine.
func New(engine string) (Operator, error) {
	if engine == "" {
		engine = EngineMemory
	}
	factory, ok := Get(engine)
	if !ok {
		return nil, &UnknownEngineError{
			Engine:    engine,
			Available: ListEngines(),
		}
	}
	return factory(), nil
}

// ListEngines returns all registered engine names (sorted).
func ListEngines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownEngineError is returned when an unknown engine is requested.
type UnknownEngineError struct {
	Engine    string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown graph engine %q, available engines: %v", e.Engine, e.Available)
}
