package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent device resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.

// TextureID is an opaque handle to a 2D RGBA8 texture.
type TextureID uint64

// BufferID is an opaque handle to a vertex buffer of float32 values.
type BufferID uint64

// FramebufferID is an opaque handle to a framebuffer object.
type FramebufferID uint64

// InvalidID is the zero value, representing an invalid/null resource.
// Binding InvalidID as a framebuffer selects the default surface.
const InvalidID = 0

// NumTextureUnits is the number of texture units every device provides:
// wind field, particle state and one scratch unit.
const NumTextureUnits = 3

// FilterMode selects the minification and magnification filter of a texture.
type FilterMode uint8

const (
	// FilterNearest samples the closest texel.
	FilterNearest FilterMode = iota

	// FilterLinear blends the four closest texels.
	FilterLinear
)

// String returns a human-readable name for the filter.
func (f FilterMode) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterLinear:
		return "Linear"
	default:
		return fmt.Sprintf("FilterMode(%d)", f)
	}
}

// Topology is the primitive topology of a draw call.
type Topology uint8

const (
	// TopologyTriangles draws independent triangles, three vertices each.
	TopologyTriangles Topology = iota

	// TopologyPoints draws one single-pixel point per vertex.
	TopologyPoints
)

// Capability is a device state switch toggled with SetCapability.
type Capability uint8

const (
	// CapabilityBlend enables blending with the factors set by SetBlendFunc.
	CapabilityBlend Capability = iota

	// CapabilityDepthTest enables depth testing. windgl never enables it.
	CapabilityDepthTest

	// CapabilityStencilTest enables stencil testing. windgl never enables it.
	CapabilityStencilTest
)

// BlendFactor is a source or destination blend factor.
type BlendFactor uint8

// Blend factors. Constant factors use a constant color of zero.
const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendOneMinusConstantAlpha
)

// Viewport is a rectangle of the current render target in pixels.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the viewport covers no pixels.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}
