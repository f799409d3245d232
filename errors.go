package windgl

import (
	"errors"

	"github.com/gogpu/windgl/gpucore"
)

// Pipeline errors.
var (
	// ErrInvalidParticleCount is returned for a requested particle count below 1.
	ErrInvalidParticleCount = errors.New("windgl: particle count must be at least 1")

	// ErrInvalidColorRamp is returned for a ramp with fewer than two stops
	// or a stop offset outside [0, 1].
	ErrInvalidColorRamp = errors.New("windgl: color ramp needs at least two stops in [0, 1]")

	// ErrInvalidSize is returned by Resize for a non-positive size.
	ErrInvalidSize = errors.New("windgl: invalid viewport size")

	// ErrNilDevice is returned by New without a device.
	ErrNilDevice = errors.New("windgl: nil device")

	// ErrClosed is returned by operations on a closed pipeline.
	ErrClosed = errors.New("windgl: pipeline closed")

	// ErrBusy is returned when a pipeline method is re-entered during Advance.
	ErrBusy = errors.New("windgl: pipeline is ticking")
)

// Program build errors, re-exported for callers that only import windgl.
type (
	// ShaderCompileError reports a stage that failed to compile.
	ShaderCompileError = gpucore.ShaderCompileError

	// ProgramLinkError reports stages that compile but do not link.
	ProgramLinkError = gpucore.ProgramLinkError
)
