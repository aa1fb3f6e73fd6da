package datasource

import (
	"fmt"
	"sort"
	"sync"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend factory available under the given handler name.
// Backends call it from init, driver-style; main selects them with blank
// imports. Registering the same name twice panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("datasource: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("datasource: Register called twice for handler %q", name))
	}
	registry[name] = factory
}

// New resolves the configured handler name and constructs the backend. An
// unknown name fails with CONFIG_INVALID before any network access.
func New(name string, opts Options, log logger.Logger) (Handler, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, apperrors.NewConfigInvalidError(
			fmt.Sprintf("unknown data source handler %q (registered: %v)", name, Handlers()))
	}
	return factory(opts, log)
}

// Handlers returns the sorted names of all registered backends.
func Handlers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
