package software

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/windgl/backend"
	"github.com/gogpu/windgl/codec"
	"github.com/gogpu/windgl/gpucore"
)

func init() {
	backend.Register(backend.BackendSoftware, func(cfg backend.DeviceConfig) (gpucore.Device, error) {
		return New(cfg.Width, cfg.Height, WithLogger(cfg.Logger))
	})
}

// Stats counts device work since creation.
type Stats struct {
	Draws     int
	Fragments int
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		d.SetLogger(l)
	}
}

// Device is the CPU reference implementation of gpucore.Device.
type Device struct {
	logger *slog.Logger

	nextID       uint64
	textures     map[gpucore.TextureID]*texture
	buffers      map[gpucore.BufferID][]float32
	framebuffers map[gpucore.FramebufferID]gpucore.TextureID

	surface *texture

	units    [gpucore.NumTextureUnits]gpucore.TextureID
	fb       gpucore.FramebufferID
	viewport gpucore.Viewport
	blend    blendState
	depth    bool
	stencil  bool
	stats    Stats
	closed   bool
}

var (
	_ gpucore.Device      = (*Device)(nil)
	_ gpucore.Reader      = (*Device)(nil)
	_ gpucore.LiveCounter = (*Device)(nil)
)

// New returns a device with a transparent default surface of the given size.
func New(width, height int, opts ...Option) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("software: surface %dx%d: %w", width, height, gpucore.ErrInvalidDimensions)
	}
	d := &Device{
		logger:       gpucore.NopLogger(),
		textures:     make(map[gpucore.TextureID]*texture),
		buffers:      make(map[gpucore.BufferID][]float32),
		framebuffers: make(map[gpucore.FramebufferID]gpucore.TextureID),
		surface:      &texture{label: "surface", width: width, height: height, pix: make([]byte, width*height*4)},
		viewport:     gpucore.Viewport{Width: width, Height: height},
		blend:        blendState{src: gpucore.BlendOne, dst: gpucore.BlendZero},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger.Debug("software: device created", "width", width, "height", height)
	return d, nil
}

// SetLogger sets the device logger. Nil disables logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = gpucore.NopLogger()
	}
	d.logger = l
}

// Stats returns the work counters.
func (d *Device) Stats() Stats { return d.stats }

// Resize replaces the default surface with a transparent one of the new size.
func (d *Device) Resize(width, height int) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	if width <= 0 || height <= 0 {
		return gpucore.ErrInvalidDimensions
	}
	if width == d.surface.width && height == d.surface.height {
		return nil
	}
	d.surface = &texture{label: "surface", width: width, height: height, pix: make([]byte, width*height*4)}
	return nil
}

// SurfaceSize returns the default surface size.
func (d *Device) SurfaceSize() (int, int) { return d.surface.width, d.surface.height }

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// CompileProgram compiles, links and builds the reference kernel of desc.
func (d *Device) CompileProgram(desc gpucore.ProgramDescriptor) (*gpucore.Program, error) {
	if d.closed {
		return nil, gpucore.ErrClosed
	}
	p, err := gpucore.CompileProgram(desc)
	if err != nil {
		return nil, err
	}
	if _, err := p.Kernel(); err != nil {
		return nil, fmt.Errorf("software: program %s: %w", desc.Label, err)
	}
	return p, nil
}

// DestroyProgram is a no-op: programs hold no device state.
func (d *Device) DestroyProgram(*gpucore.Program) {}

// CreateTexture creates an RGBA8 texture from desc.Source.
func (d *Device) CreateTexture(desc gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	t, err := newTexture(desc.Label, desc.Filter, desc.Source)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("software: create texture %q: %w", desc.Label, err)
	}
	id := gpucore.TextureID(d.id())
	d.textures[id] = t
	d.logger.Debug("software: texture created", "id", id, "label", desc.Label, "width", t.width, "height", t.height)
	return id, nil
}

// UpdateTexture replaces the contents of a texture with a same-sized source.
func (d *Device) UpdateTexture(id gpucore.TextureID, src gpucore.TextureSource) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	pix, w, h, err := src.RGBA()
	if err != nil {
		return fmt.Errorf("software: update texture %q: %w", t.label, err)
	}
	if w != t.width || h != t.height {
		return fmt.Errorf("%w: %dx%d into %dx%d", gpucore.ErrSizeMismatch, w, h, t.width, t.height)
	}
	copy(t.pix, pix)
	return nil
}

// DestroyTexture releases a texture and unbinds it from every unit.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	if _, ok := d.textures[id]; !ok {
		return
	}
	delete(d.textures, id)
	for i := range d.units {
		if d.units[i] == id {
			d.units[i] = gpucore.InvalidID
		}
	}
	for fb, color := range d.framebuffers {
		if color == id {
			d.framebuffers[fb] = gpucore.InvalidID
		}
	}
}

// TextureSize returns the size of a texture.
func (d *Device) TextureSize(id gpucore.TextureID) (int, int, error) {
	t, ok := d.textures[id]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return t.width, t.height, nil
}

// CreateBuffer stores a copy of data as a vertex buffer.
func (d *Device) CreateBuffer(label string, data []float32) (gpucore.BufferID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = append([]float32(nil), data...)
	d.logger.Debug("software: buffer created", "id", id, "label", label, "floats", len(data))
	return id, nil
}

// DestroyBuffer releases a vertex buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	delete(d.buffers, id)
}

// CreateFramebuffer creates a framebuffer without attachments.
func (d *Device) CreateFramebuffer() (gpucore.FramebufferID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	id := gpucore.FramebufferID(d.id())
	d.framebuffers[id] = gpucore.InvalidID
	return id, nil
}

// DestroyFramebuffer releases a framebuffer, rebinding the default surface
// when it was bound.
func (d *Device) DestroyFramebuffer(id gpucore.FramebufferID) {
	delete(d.framebuffers, id)
	if d.fb == id {
		d.fb = gpucore.InvalidID
	}
}

// BindFramebuffer makes fb the render target with color as its attachment.
// InvalidID selects the default surface and ignores color.
func (d *Device) BindFramebuffer(fb gpucore.FramebufferID, color gpucore.TextureID) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	if fb == gpucore.InvalidID {
		d.fb = gpucore.InvalidID
		return nil
	}
	if _, ok := d.framebuffers[fb]; !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownFramebuffer, fb)
	}
	if _, ok := d.textures[color]; !ok {
		return fmt.Errorf("framebuffer color: %w: %d", gpucore.ErrUnknownTexture, color)
	}
	d.framebuffers[fb] = color
	d.fb = fb
	return nil
}

// BindTexture binds a texture to a unit.
func (d *Device) BindTexture(id gpucore.TextureID, unit int) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	if unit < 0 || unit >= gpucore.NumTextureUnits {
		return fmt.Errorf("%w: %d", gpucore.ErrInvalidUnit, unit)
	}
	if _, ok := d.textures[id]; !ok && id != gpucore.InvalidID {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	d.units[unit] = id
	return nil
}

// SetViewport sets the viewport. An empty viewport covers the whole target.
func (d *Device) SetViewport(vp gpucore.Viewport) { d.viewport = vp }

// SetCapability toggles fixed-function state.
func (d *Device) SetCapability(c gpucore.Capability, enabled bool) {
	switch c {
	case gpucore.CapabilityBlend:
		d.blend.enabled = enabled
	case gpucore.CapabilityDepthTest:
		d.depth = enabled
	case gpucore.CapabilityStencilTest:
		d.stencil = enabled
	}
}

// SetBlendFunc sets the blend factors.
func (d *Device) SetBlendFunc(src, dst gpucore.BlendFactor) {
	d.blend.src, d.blend.dst = src, dst
}

// Clear fills the whole bound target with c.
func (d *Device) Clear(c gputypes.Color) {
	t, _, err := d.target()
	if err != nil {
		d.logger.Warn("software: clear without target", "error", err)
		return
	}
	t.clear([4]uint8{
		codec.Quantize(float32(c.R)),
		codec.Quantize(float32(c.G)),
		codec.Quantize(float32(c.B)),
		codec.Quantize(float32(c.A)),
	})
}

// target returns the bound color texture and its ID (InvalidID for the surface).
func (d *Device) target() (*texture, gpucore.TextureID, error) {
	if d.fb == gpucore.InvalidID {
		return d.surface, gpucore.InvalidID, nil
	}
	color := d.framebuffers[d.fb]
	t, ok := d.textures[color]
	if !ok {
		return nil, gpucore.InvalidID, fmt.Errorf("framebuffer %d has no color attachment: %w", d.fb, gpucore.ErrUnknownTexture)
	}
	return t, color, nil
}

// Draw executes one draw call into the bound target.
func (d *Device) Draw(call gpucore.DrawCall) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	if call.Program == nil {
		return fmt.Errorf("software: draw without program")
	}
	kernel, err := call.Program.Kernel()
	if err != nil {
		return err
	}
	dst, dstID, err := d.target()
	if err != nil {
		return err
	}

	ctx := gpucore.NewShadingContext(call.Uniforms)
	for _, b := range call.Textures {
		if b.Unit < 0 || b.Unit >= gpucore.NumTextureUnits {
			return fmt.Errorf("%w: %d", gpucore.ErrInvalidUnit, b.Unit)
		}
		id := d.units[b.Unit]
		t, ok := d.textures[id]
		if !ok {
			return fmt.Errorf("%s: unit %d: %w", b.Slot.Name, b.Unit, gpucore.ErrUnknownTexture)
		}
		if id == dstID {
			return fmt.Errorf("%s: %w", b.Slot.Name, gpucore.ErrFeedbackLoop)
		}
		ctx.Bind(b.Slot, sampler{tex: t})
	}

	buf, ok := d.buffers[call.Attribute.Buffer]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownBuffer, call.Attribute.Buffer)
	}
	comps := call.Attribute.Components
	if comps < 1 || comps > 4 {
		return fmt.Errorf("software: %d attribute components", comps)
	}
	if call.First < 0 || call.Count < 0 || (call.First+call.Count)*comps > len(buf) {
		return fmt.Errorf("software: vertex range [%d, %d) exceeds buffer of %d vertices",
			call.First, call.First+call.Count, len(buf)/comps)
	}

	vp := d.viewport
	if vp.Empty() {
		vp = gpucore.Viewport{Width: dst.width, Height: dst.height}
	}
	tgt := target{
		tex: dst,
		clip: rect{
			x0: max(vp.X, 0),
			y0: max(vp.Y, 0),
			x1: min(vp.X+vp.Width, dst.width),
			y1: min(vp.Y+vp.Height, dst.height),
		},
		blend: d.blend,
	}

	verts := make([]vertex, call.Count)
	for i := range verts {
		var attr [4]float32
		base := (call.First + i) * comps
		copy(attr[:], buf[base:base+comps])
		pos, out := kernel.Vertex(ctx, attr)
		x, y := toWindow(pos, vp)
		verts[i] = vertex{x: x, y: y, out: out}
	}

	shade := func(in gpucore.Varyings) ([4]float32, bool) {
		c, ok := kernel.Fragment(ctx, in)
		for k := range c {
			c[k] = min(max(c[k], 0), 1)
		}
		return c, ok
	}

	fragments := 0
	switch call.Topology {
	case gpucore.TopologyPoints:
		for _, v := range verts {
			if tgt.point(v, shade) {
				fragments++
			}
		}
	case gpucore.TopologyTriangles:
		for i := 0; i+2 < len(verts); i += 3 {
			fragments += tgt.triangle(verts[i], verts[i+1], verts[i+2], shade)
		}
	default:
		return fmt.Errorf("software: unsupported topology %d", call.Topology)
	}

	d.stats.Draws++
	d.stats.Fragments += fragments
	return nil
}

// ReadPixels returns a copy of a texture's RGBA bytes, row 0 first.
func (d *Device) ReadPixels(id gpucore.TextureID) ([]byte, error) {
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return append([]byte(nil), t.pix...), nil
}

// ReadSurface returns a copy of the default surface.
func (d *Device) ReadSurface() ([]byte, error) {
	return append([]byte(nil), d.surface.pix...), nil
}

// Close releases all resources. Further calls fail with gpucore.ErrClosed.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	if n := len(d.textures) + len(d.buffers) + len(d.framebuffers); n > 0 {
		d.logger.Debug("software: releasing live objects on close", "count", n)
	}
	clear(d.textures)
	clear(d.buffers)
	clear(d.framebuffers)
	d.closed = true
	return nil
}

// Live returns the number of textures, buffers and framebuffers not yet destroyed.
func (d *Device) Live() (textures, buffers, framebuffers int) {
	return len(d.textures), len(d.buffers), len(d.framebuffers)
}
