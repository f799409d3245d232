package gpucore

import "github.com/gogpu/gputypes"

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Filter controls both minification and magnification.
	// Wrapping is always clamp-to-edge.
	Filter FilterMode

	// Source is the initial content and, for raw sources, the size.
	Source TextureSource
}

// TextureBinding connects a sampled texture slot of a program to a texture unit.
type TextureBinding struct {
	Slot Slot
	Unit int
}

// AttributeBinding feeds a vertex attribute slot from a float32 buffer.
type AttributeBinding struct {
	Slot       Slot
	Buffer     BufferID
	Components int // floats per vertex, 1..4
}

// DrawCall is one draw into the currently bound framebuffer.
type DrawCall struct {
	Program   *Program
	Uniforms  *UniformBlock
	Textures  []TextureBinding
	Attribute AttributeBinding
	Topology  Topology

	// First and Count select the vertex range.
	First int
	Count int
}

// Device is the command surface the simulation pipeline is written against.
//
// State set through BindTexture, BindFramebuffer, SetViewport, SetCapability
// and SetBlendFunc persists until changed, but callers must not assume that
// texture bindings survive across passes: bind before every draw that samples.
//
// Devices are not safe for concurrent use.
type Device interface {
	// CompileProgram compiles and links a vertex+fragment program.
	CompileProgram(desc ProgramDescriptor) (*Program, error)

	// DestroyProgram releases backend objects held for a program.
	DestroyProgram(p *Program)

	// CreateTexture allocates an RGBA8 texture initialised from desc.Source.
	CreateTexture(desc TextureDescriptor) (TextureID, error)

	// UpdateTexture replaces the content of a texture of the same size.
	UpdateTexture(id TextureID, src TextureSource) error

	// DestroyTexture releases a texture. Unknown IDs are ignored.
	DestroyTexture(id TextureID)

	// TextureSize returns the dimensions of a live texture.
	TextureSize(id TextureID) (width, height int, err error)

	// CreateBuffer uploads float32 vertex data.
	CreateBuffer(label string, data []float32) (BufferID, error)

	// DestroyBuffer releases a buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// CreateFramebuffer allocates a framebuffer object.
	CreateFramebuffer() (FramebufferID, error)

	// DestroyFramebuffer releases a framebuffer object.
	DestroyFramebuffer(id FramebufferID)

	// BindFramebuffer selects the render target. InvalidID selects the
	// default surface; otherwise color becomes the framebuffer's color
	// attachment (InvalidID keeps the current attachment).
	BindFramebuffer(fb FramebufferID, color TextureID) error

	// BindTexture activates a texture on a unit.
	BindTexture(id TextureID, unit int) error

	// SetViewport sets the viewport of the current render target.
	SetViewport(v Viewport)

	// SetCapability toggles blending, depth testing or stencil testing.
	SetCapability(c Capability, enabled bool)

	// SetBlendFunc sets the blend factors used while blending is enabled.
	SetBlendFunc(src, dst BlendFactor)

	// Clear fills the current render target.
	Clear(c gputypes.Color)

	// Draw issues one draw call. Draws are queued; Draw never waits for
	// completion.
	Draw(call DrawCall) error

	// SurfaceSize returns the size of the default surface.
	SurfaceSize() (width, height int)

	// Close releases all resources.
	Close() error
}

// Reader is implemented by devices that can copy texture contents back to
// host memory. Pixels are tight, non-premultiplied RGBA rows, top row first.
type Reader interface {
	ReadPixels(id TextureID) ([]byte, error)
	ReadSurface() ([]byte, error)
}

// LiveCounter is implemented by devices that report the objects they
// still hold.
type LiveCounter interface {
	Live() (textures, buffers, framebuffers int)
}
