//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan HAL backend

	"github.com/gogpu/windgl/backend"
	"github.com/gogpu/windgl/gpucore"
)

func init() {
	backend.Register(backend.BackendWGPU, func(cfg backend.DeviceConfig) (gpucore.Device, error) {
		return New(cfg.Width, cfg.Height, WithLogger(cfg.Logger))
	})
}

var (
	// ErrNoAdapter is returned when no GPU adapter is available.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrProvider is returned by NewFromProvider for providers that do not
	// expose HAL objects.
	ErrProvider = errors.New("wgpu: provider does not expose HAL device and queue")

	// ErrViewport is returned by Draw for a viewport outside the target.
	ErrViewport = errors.New("wgpu: viewport outside render target")
)

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		d.SetLogger(l)
	}
}

// texture is a device texture with its default view.
type texture struct {
	label         string
	width, height int
	filter        gpucore.FilterMode
	tex           hal.Texture
	view          hal.TextureView

	// usage is the usage of the last write, for readback barriers.
	usage gputypes.TextureUsage
}

// vertexBuffer is an uploaded float32 buffer.
type vertexBuffer struct {
	buf    hal.Buffer
	floats int
}

// Device is a gpucore.Device on a wgpu HAL device.
type Device struct {
	logger *slog.Logger

	instance hal.Instance // nil for shared devices
	device   hal.Device
	queue    hal.Queue
	shared   bool
	adapter  string

	nextID       uint64
	textures     map[gpucore.TextureID]*texture
	buffers      map[gpucore.BufferID]*vertexBuffer
	framebuffers map[gpucore.FramebufferID]gpucore.TextureID
	programs     map[*gpucore.Program]*program
	samplers     [2]hal.Sampler // by gpucore.FilterMode

	surface *texture

	units    [gpucore.NumTextureUnits]gpucore.TextureID
	fb       gpucore.FramebufferID
	viewport gpucore.Viewport
	blend    blendState

	sub    submitter
	closed bool
}

var (
	_ gpucore.Device      = (*Device)(nil)
	_ gpucore.Reader      = (*Device)(nil)
	_ gpucore.LiveCounter = (*Device)(nil)
)

// New opens a standalone device with a width×height default surface.
func New(width, height int, opts ...Option) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: surface %dx%d: %w", width, height, gpucore.ErrInvalidDimensions)
	}
	hb, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := hb.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d, err := newDevice(openDev.Device, openDev.Queue, width, height, opts)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.adapter = selected.Info.Name
	d.logger.Info("wgpu: device opened", "adapter", d.adapter, "width", width, "height", height)
	return d, nil
}

// NewFromProvider creates a device on the HAL device and queue of a host
// application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. Close releases the
// windgl objects but leaves the shared device open.
func NewFromProvider(provider gpucontext.DeviceProvider, width, height int, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProvider)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: surface %dx%d: %w", width, height, gpucore.ErrInvalidDimensions)
	}

	d, err := newDevice(device, queue, width, height, opts)
	if err != nil {
		return nil, err
	}
	d.shared = true
	d.logger.Debug("wgpu: using shared device", "width", width, "height", height)
	return d, nil
}

func newDevice(device hal.Device, queue hal.Queue, width, height int, opts []Option) (*Device, error) {
	d := &Device{
		logger:       gpucore.NopLogger(),
		device:       device,
		queue:        queue,
		textures:     make(map[gpucore.TextureID]*texture),
		buffers:      make(map[gpucore.BufferID]*vertexBuffer),
		framebuffers: make(map[gpucore.FramebufferID]gpucore.TextureID),
		programs:     make(map[*gpucore.Program]*program),
		viewport:     gpucore.Viewport{Width: width, Height: height},
		blend:        blendState{src: gpucore.BlendOne, dst: gpucore.BlendZero},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.sub = submitter{device: device, queue: queue}

	for _, f := range []gpucore.FilterMode{gpucore.FilterNearest, gpucore.FilterLinear} {
		mode := gputypes.FilterModeNearest
		if f == gpucore.FilterLinear {
			mode = gputypes.FilterModeLinear
		}
		s, err := device.CreateSampler(&hal.SamplerDescriptor{
			Label:        "windgl_sampler_" + f.String(),
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    mode,
			MinFilter:    mode,
			MipmapFilter: mode,
		})
		if err != nil {
			d.release()
			return nil, fmt.Errorf("wgpu: create sampler: %w", err)
		}
		d.samplers[f] = s
	}

	surface, err := d.newTexture("surface", gpucore.FilterNearest, gpucore.Empty(width, height))
	if err != nil {
		d.release()
		return nil, err
	}
	d.surface = surface
	return d, nil
}

// SetLogger sets the device logger. Nil disables logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = gpucore.NopLogger()
	}
	d.logger = l
}

// Adapter returns the adapter name of a standalone device.
func (d *Device) Adapter() string { return d.adapter }

// SurfaceSize returns the default surface size.
func (d *Device) SurfaceSize() (int, int) { return d.surface.width, d.surface.height }

// Resize replaces the default surface with a transparent one.
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
	surface, err := d.newTexture("surface", gpucore.FilterNearest, gpucore.Empty(width, height))
	if err != nil {
		return err
	}
	d.retireTexture(d.surface)
	d.surface = surface
	return nil
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// CompileProgram compiles desc and builds its bind group and pipeline
// layouts. Render pipelines are created on first use for each combination
// of topology, blending and vertex format.
func (d *Device) CompileProgram(desc gpucore.ProgramDescriptor) (*gpucore.Program, error) {
	if d.closed {
		return nil, gpucore.ErrClosed
	}
	p, err := gpucore.CompileProgram(desc)
	if err != nil {
		return nil, err
	}
	hp, err := newProgram(d.device, p)
	if err != nil {
		return nil, fmt.Errorf("wgpu: program %s: %w", desc.Label, err)
	}
	d.programs[p] = hp
	p.SetHandle(hp)
	d.logger.Debug("wgpu: program compiled", "label", desc.Label, "bindings", len(p.Bindings()))
	return p, nil
}

// DestroyProgram releases the pipelines of p.
func (d *Device) DestroyProgram(p *gpucore.Program) {
	hp, ok := d.programs[p]
	if !ok {
		return
	}
	delete(d.programs, p)
	p.SetHandle(nil)
	d.sub.retire(func() { hp.destroy(d.device) })
}

// CreateTexture creates an RGBA8 texture from desc.Source.
func (d *Device) CreateTexture(desc gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	t, err := d.newTexture(desc.Label, desc.Filter, desc.Source)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.TextureID(d.id())
	d.textures[id] = t
	d.logger.Debug("wgpu: texture created", "id", id, "label", desc.Label, "width", t.width, "height", t.height)
	return id, nil
}

func (d *Device) newTexture(label string, filter gpucore.FilterMode, src gpucore.TextureSource) (*texture, error) {
	pix, w, h, err := src.RGBA()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}
	if filter != gpucore.FilterLinear {
		filter = gpucore.FilterNearest
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create view %q: %w", label, err)
	}

	t := &texture{label: label, width: w, height: h, filter: filter, tex: tex, view: view}
	d.upload(t, pix)
	return t, nil
}

func (d *Device) upload(t *texture, pix []byte) {
	t.usage = gputypes.TextureUsageCopyDst
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(t.width * 4), RowsPerImage: uint32(t.height)},
		&hal.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	)
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
		return fmt.Errorf("wgpu: update texture %q: %w", t.label, err)
	}
	if w != t.width || h != t.height {
		return fmt.Errorf("%w: %dx%d into %dx%d", gpucore.ErrSizeMismatch, w, h, t.width, t.height)
	}
	d.upload(t, pix)
	return nil
}

// DestroyTexture releases a texture once the GPU no longer uses it.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	t, ok := d.textures[id]
	if !ok {
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
	d.retireTexture(t)
}

func (d *Device) retireTexture(t *texture) {
	d.sub.retire(func() {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.tex)
	})
}

// TextureSize returns the size of a texture.
func (d *Device) TextureSize(id gpucore.TextureID) (int, int, error) {
	t, ok := d.textures[id]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return t.width, t.height, nil
}

// Live returns the number of textures, buffers and framebuffers not yet
// destroyed. The surface is not counted.
func (d *Device) Live() (textures, buffers, framebuffers int) {
	return len(d.textures), len(d.buffers), len(d.framebuffers)
}

// CreateBuffer uploads data as a vertex buffer.
func (d *Device) CreateBuffer(label string, data []float32) (gpucore.BufferID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	if len(data) == 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: empty buffer %q", label)
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data) * 4),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, floatBytes(data))

	id := gpucore.BufferID(d.id())
	d.buffers[id] = &vertexBuffer{buf: buf, floats: len(data)}
	d.logger.Debug("wgpu: buffer created", "id", id, "label", label, "floats", len(data))
	return id, nil
}

// DestroyBuffer releases a vertex buffer once the GPU no longer uses it.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.sub.retire(func() { d.device.DestroyBuffer(b.buf) })
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
	if color != gpucore.InvalidID {
		if _, ok := d.textures[color]; !ok {
			return fmt.Errorf("framebuffer color: %w: %d", gpucore.ErrUnknownTexture, color)
		}
		d.framebuffers[fb] = color
	}
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

// SetCapability toggles blending. Depth and stencil testing have no
// attachments on this device and are ignored.
func (d *Device) SetCapability(c gpucore.Capability, enabled bool) {
	if c == gpucore.CapabilityBlend {
		d.blend.enabled = enabled
	}
}

// SetBlendFunc sets the blend factors.
func (d *Device) SetBlendFunc(src, dst gpucore.BlendFactor) {
	d.blend.src, d.blend.dst = src, dst
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

// Close waits for submitted work and releases every object. A shared HAL
// device stays open.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	if n := len(d.textures) + len(d.buffers) + len(d.framebuffers); n > 0 {
		d.logger.Debug("wgpu: releasing live objects on close", "count", n)
	}
	for id := range d.textures {
		d.DestroyTexture(id)
	}
	for id := range d.buffers {
		d.DestroyBuffer(id)
	}
	for p := range d.programs {
		d.DestroyProgram(p)
	}
	clear(d.framebuffers)
	if d.surface != nil {
		d.retireTexture(d.surface)
		d.surface = &texture{label: "surface", width: d.surface.width, height: d.surface.height}
	}
	err := d.sub.drain()
	if err != nil {
		d.logger.Warn("wgpu: waiting for GPU on close", "error", err)
	}
	d.release()
	if !d.shared {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.closed = true
	return err
}

// release destroys the samplers.
func (d *Device) release() {
	for i, s := range d.samplers {
		if s != nil {
			d.device.DestroySampler(s)
			d.samplers[i] = nil
		}
	}
}
