package backend

import (
	"errors"

	"github.com/gogpu/framegraph/hal"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when no requested backend can
	// open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Open.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Well-known backend names.
const (
	// BackendWgpu runs on a real GPU through the wgpu HAL.
	BackendWgpu = "wgpu"

	// BackendSim is the in-memory simulation backend used for tests
	// and headless validation.
	BackendSim = "sim"
)

// Opened is a backend's device plus the allocator that serves it.
type Opened struct {
	Device    hal.Device
	Allocator hal.Allocator
}

// Backend opens devices for one implementation. Backends register
// themselves via Register, usually from an init function, and are
// selected by name or by priority via Default.
type Backend interface {
	// Name returns the backend identifier (e.g. "wgpu", "sim").
	Name() string

	// Open creates a device. A backend whose underlying platform is
	// unavailable returns ErrBackendNotAvailable, letting Default fall
	// through to the next candidate.
	Open() (*Opened, error)

	// Close releases backend-level resources. Devices opened from the
	// backend must be destroyed first.
	Close()
}
