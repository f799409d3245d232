package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/windgl/gpucore"
)

// Factory opens a device.
type Factory func(cfg DeviceConfig) (gpucore.Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for Default (first that opens wins).
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a device factory under name, replacing any previous one.
// It is typically called from init() in device packages.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a factory. Useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens a device from the named backend.
func Open(name string, cfg DeviceConfig) (gpucore.Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return dev, nil
}

// Default opens the first backend in priority order that succeeds, then any
// other registered backend. It returns the device and the backend name.
func Default(cfg DeviceConfig) (gpucore.Device, string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	registryMu.RLock()
	order := make([]string, 0, len(factories))
	for _, name := range backendPriority {
		if _, ok := factories[name]; ok {
			order = append(order, name)
		}
	}
	var rest []string
	for name := range factories {
		if !contains(backendPriority, name) {
			rest = append(rest, name)
		}
	}
	registryMu.RUnlock()
	sort.Strings(rest)
	order = append(order, rest...)

	var errs []error
	for _, name := range order {
		dev, err := Open(name, cfg)
		if err == nil {
			return dev, name, nil
		}
		if cfg.Logger != nil {
			cfg.Logger.Warn("backend: open failed, trying next", "backend", name, "error", err)
		}
		errs = append(errs, err)
	}
	return nil, "", errors.Join(append([]error{ErrBackendNotAvailable}, errs...)...)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
