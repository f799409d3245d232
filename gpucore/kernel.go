package gpucore

// MaxVaryingFloats is the number of interpolated floats a kernel may pass
// from its vertex to its fragment stage.
const MaxVaryingFloats = 4

// Varyings carries interpolated vertex outputs, packed in location order.
type Varyings [MaxVaryingFloats]float32

// Sampler reads a bound texture with normalized RGBA results.
type Sampler interface {
	// Size returns the texture size in texels.
	Size() (w, h int)

	// Sample filters at normalized coordinates with clamp-to-edge wrapping.
	// Row 0 is at v = 0.
	Sample(u, v float32) [4]float32

	// Load fetches one texel without filtering. Coordinates are clamped.
	Load(x, y int) [4]float32
}

// ShadingContext exposes the inputs of one draw to a Kernel.
type ShadingContext struct {
	Uniforms *UniformBlock

	textures map[int]Sampler
}

// NewShadingContext returns a context reading uniforms from u.
func NewShadingContext(u *UniformBlock) *ShadingContext {
	return &ShadingContext{Uniforms: u, textures: make(map[int]Sampler)}
}

// Bind attaches a sampler to a texture slot.
func (c *ShadingContext) Bind(s Slot, smp Sampler) {
	c.textures[s.Binding] = smp
}

// Texture returns the sampler bound to a texture slot, or nil.
func (c *ShadingContext) Texture(s Slot) Sampler {
	return c.textures[s.Binding]
}

// Float reads a scalar uniform.
func (c *ShadingContext) Float(s Slot) float32 { return c.Uniforms.Float(s) }

// Vec2 reads a vec2 uniform.
func (c *ShadingContext) Vec2(s Slot) (x, y float32) { return c.Uniforms.Vec2(s) }

// Kernel is the CPU rendition of a program, executed by the software device.
// It must compute what the WGSL stages compute, in float32.
type Kernel interface {
	// Vertex returns the clip-space position and varyings of one vertex.
	// attr holds the vertex attribute, zero-padded to four components.
	Vertex(ctx *ShadingContext, attr [4]float32) (pos [4]float32, out Varyings)

	// Fragment returns the normalized RGBA output for interpolated varyings.
	// Returning ok=false discards the fragment.
	Fragment(ctx *ShadingContext, in Varyings) (color [4]float32, ok bool)
}
