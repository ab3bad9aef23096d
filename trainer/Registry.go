package trainer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JelinR/habitat-lab/config"
)

// Factory creates a Trainer
type Factory func(c *config.Config, opts ...Option) (Trainer, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a trainer available by name. It panics if a trainer
// is registered twice under the same name.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("register: trainer %q registered twice", name))
	}
	registry[name] = f
}

// Get returns the factory of the trainer registered under name
func Get(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("get: no trainer registered as %q", name)
	}
	return f, nil
}

// Registered returns the sorted names of all registered trainers
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
