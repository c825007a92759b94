package backend

import (
	"sync"
)

// Factory creates a new backend instance.
type Factory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first openable wins).
	// wgpu runs on hardware; sim is the headless fallback.
	backendPriority = []string{BackendWgpu, BackendSim}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns a list of registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// OpenDefault opens a device from the best available backend by
// priority, falling back to any other registered backend if none of
// the prioritized ones can open.
func OpenDefault() (*Opened, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var lastErr error
	tryOpen := func(factory Factory) *Opened {
		b := factory()
		if b == nil {
			return nil
		}
		opened, err := b.Open()
		if err != nil {
			lastErr = err
			return nil
		}
		return opened
	}

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if opened := tryOpen(factory); opened != nil {
				return opened, nil
			}
		}
	}
	for name, factory := range backends {
		if prioritized(name) {
			continue
		}
		if opened := tryOpen(factory); opened != nil {
			return opened, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrBackendNotAvailable
}

func prioritized(name string) bool {
	for _, p := range backendPriority {
		if p == name {
			return true
		}
	}
	return false
}
