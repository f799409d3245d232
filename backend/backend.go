package backend

import (
	"errors"
	"log/slog"
)

// Backend names.
const (
	// BackendWGPU is the gogpu/wgpu HAL device.
	BackendWGPU = "wgpu"

	// BackendSoftware is the CPU reference device.
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered
	// or none of the registered backends could open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrInvalidSize is returned for a non-positive surface size.
	ErrInvalidSize = errors.New("backend: invalid surface size")
)

// DeviceConfig configures a new device.
type DeviceConfig struct {
	// Width and Height are the size of the default surface.
	Width  int
	Height int

	// Logger receives device diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Validate reports whether the configuration can open a device.
func (c DeviceConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return ErrInvalidSize
	}
	return nil
}
