package gpucore

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by devices.
var (
	// ErrUnknownTexture is returned when a TextureID does not name a live texture.
	ErrUnknownTexture = errors.New("gpucore: unknown texture")

	// ErrUnknownBuffer is returned when a BufferID does not name a live buffer.
	ErrUnknownBuffer = errors.New("gpucore: unknown buffer")

	// ErrUnknownFramebuffer is returned when a FramebufferID does not name a live framebuffer.
	ErrUnknownFramebuffer = errors.New("gpucore: unknown framebuffer")

	// ErrInvalidUnit is returned when a texture unit is outside [0, NumTextureUnits).
	ErrInvalidUnit = errors.New("gpucore: texture unit out of range")

	// ErrInvalidDimensions is returned for zero or negative texture sizes.
	ErrInvalidDimensions = errors.New("gpucore: invalid texture dimensions")

	// ErrShortPixels is returned when a raw source holds fewer than width*height*4 bytes.
	ErrShortPixels = errors.New("gpucore: pixel buffer shorter than width*height*4")

	// ErrSizeMismatch is returned when an update does not match the texture size.
	ErrSizeMismatch = errors.New("gpucore: source size does not match texture")

	// ErrFeedbackLoop is returned when a draw samples the texture it renders into.
	ErrFeedbackLoop = errors.New("gpucore: texture is both sampled and render target")

	// ErrUnknownSlot is returned when a program declares no input with the requested name.
	ErrUnknownSlot = errors.New("gpucore: unknown program slot")

	// ErrNoKernel is returned by the software device for programs without a reference kernel.
	ErrNoKernel = errors.New("gpucore: program has no reference kernel")

	// ErrReadbackNotSupported is returned by devices that cannot read textures back.
	ErrReadbackNotSupported = errors.New("gpucore: readback not supported")

	// ErrClosed is returned by devices after Close.
	ErrClosed = errors.New("gpucore: device closed")
)

// Stage identifies a programmable pipeline stage.
type Stage uint8

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota

	// StageFragment is the fragment stage.
	StageFragment
)

// String returns the WGSL attribute name of the stage.
func (s Stage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "fragment"
}

// ShaderCompileError is returned when a shader stage fails to compile.
// Log carries the compiler diagnostic.
type ShaderCompileError struct {
	Program string
	Stage   Stage
	Log     string
	Err     error
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("gpucore: compile %s %s shader: %s", e.Program, e.Stage, e.Log)
}

func (e *ShaderCompileError) Unwrap() error { return e.Err }

// ProgramLinkError is returned when compiled vertex and fragment stages
// cannot be linked into one program.
type ProgramLinkError struct {
	Program string
	Log     string
}

func (e *ProgramLinkError) Error() string {
	return fmt.Sprintf("gpucore: link program %s: %s", e.Program, e.Log)
}

// ShaderLinkError is an alias of ProgramLinkError.
type ShaderLinkError = ProgramLinkError
