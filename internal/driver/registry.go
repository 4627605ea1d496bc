package driver

import (
	"fmt"
	"maps"
	"sync"

	"content_import/internal/domain"
)

// Registry maps driver names to drivers. It is filled once at startup.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[string]Driver)}
	for _, d := range drivers {
		r.Register(d)
	}
	return r
}

// Register stores d under its name, replacing any previous driver with that name.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Name()] = d
}

func (r *Registry) Get(name string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrDriverNotFound, name)
	}
	return d, nil
}

// List returns a snapshot of the registered drivers.
func (r *Registry) List() map[string]Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.drivers)
}
