package windgl

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/windgl/gpucore"
	"github.com/gogpu/windgl/shader"
)

// Texture units used by every pass.
const (
	unitWind      = 0
	unitParticles = 1
	unitScratch   = 2
)

// State is the lifecycle state of a Pipeline.
type State uint8

const (
	// StateUninitialized is the state before New completes.
	StateUninitialized State = iota

	// StateReady accepts ticks and configuration changes.
	StateReady

	// StateTicking is the state during Advance.
	StateTicking

	// StateClosed is the state after Close.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReady:
		return "Ready"
	case StateTicking:
		return "Ticking"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// drawProgram is the particle point program with its resolved inputs.
type drawProgram struct {
	prog     *gpucore.Program
	uniforms *gpucore.UniformBlock

	aIndex, wind, particles, ramp gpucore.Slot
	windMin, windMax, res         gpucore.Slot
}

// screenProgram is the full-screen texture copy.
type screenProgram struct {
	prog     *gpucore.Program
	uniforms *gpucore.UniformBlock

	aPos, screen, opacity gpucore.Slot
}

// updateProgram is the particle advection program.
type updateProgram struct {
	prog     *gpucore.Program
	uniforms *gpucore.UniformBlock

	aPos, wind, particles       gpucore.Slot
	windRes, windMin, windMax   gpucore.Slot
	seed, speed, drop, dropBump gpucore.Slot
	res                         gpucore.Slot
}

// slotTable resolves a list of named slots into their destinations.
type slotTable struct {
	prog *gpucore.Program
	err  error
}

func (t *slotTable) bind(name string, dst *gpucore.Slot) {
	if t.err != nil {
		return
	}
	*dst, t.err = t.prog.Slot(name)
}

// Pipeline runs the particle simulation on a device. Each Advance draws the
// faded trail and the particles into an offscreen texture, presents it to
// the device surface, and moves every particle one step through the field.
//
// A Pipeline is not safe for concurrent use; use TunableSet to change
// parameters from another goroutine.
type Pipeline struct {
	dev   gpucore.Device
	log   *slog.Logger
	rng   *rand.Rand
	state State

	draw   drawProgram
	screen screenProgram
	update updateProgram

	quad  gpucore.BufferID
	index gpucore.BufferID
	fb    gpucore.FramebufferID
	ramp  gpucore.TextureID

	wind     gpucore.TextureID
	field    VectorField
	hasField bool

	particles texturePair
	trail     texturePair // front is the background, back the screen
	requested int
	res       int

	width, height int
	ticks         uint64

	// live holds the device object counts seen before init.
	live    [3]int
	counted bool
}

// New creates a pipeline on dev sized to the device surface.
// Shader compile and link failures are returned as *ShaderCompileError and
// *ProgramLinkError; resources created before the failure are released.
func New(dev gpucore.Device, opts ...Option) (*Pipeline, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.rand == nil {
		o.rand = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	p := &Pipeline{
		dev: dev,
		log: o.logger,
		rng: rand.New(o.rand),
	}
	propagateLogger(dev, o.logger)
	if lc, ok := dev.(gpucore.LiveCounter); ok {
		p.live[0], p.live[1], p.live[2] = lc.Live()
		p.counted = true
	}

	if err := p.init(o); err != nil {
		p.release()
		return nil, err
	}
	p.state = StateReady
	p.log.Info("windgl: pipeline ready",
		"width", p.width, "height", p.height,
		"particles", p.ParticleCount())
	return p, nil
}

func (p *Pipeline) init(o options) error {
	if err := p.compile(); err != nil {
		return err
	}

	var err error
	if p.quad, err = p.dev.CreateBuffer("quad", shader.QuadVertices); err != nil {
		return fmt.Errorf("windgl: quad buffer: %w", err)
	}
	if p.fb, err = p.dev.CreateFramebuffer(); err != nil {
		return fmt.Errorf("windgl: framebuffer: %w", err)
	}
	if err := p.SetColorRamp(o.ramp); err != nil {
		return err
	}
	w, h := p.dev.SurfaceSize()
	if err := p.resizeTrail(w, h); err != nil {
		return err
	}
	return p.SetParticleCount(o.particleCount)
}

func (p *Pipeline) compile() error {
	var err error
	if p.draw.prog, err = p.dev.CompileProgram(shader.Draw()); err != nil {
		return err
	}
	if p.screen.prog, err = p.dev.CompileProgram(shader.Screen()); err != nil {
		return err
	}
	if p.update.prog, err = p.dev.CompileProgram(shader.Update()); err != nil {
		return err
	}

	d := slotTable{prog: p.draw.prog}
	d.bind("a_index", &p.draw.aIndex)
	d.bind("u_wind", &p.draw.wind)
	d.bind("u_particles", &p.draw.particles)
	d.bind("u_color_ramp", &p.draw.ramp)
	d.bind("u_wind_min", &p.draw.windMin)
	d.bind("u_wind_max", &p.draw.windMax)
	d.bind("u_particles_res", &p.draw.res)

	s := slotTable{prog: p.screen.prog}
	s.bind("a_pos", &p.screen.aPos)
	s.bind("u_screen", &p.screen.screen)
	s.bind("u_opacity", &p.screen.opacity)

	u := slotTable{prog: p.update.prog}
	u.bind("a_pos", &p.update.aPos)
	u.bind("u_wind", &p.update.wind)
	u.bind("u_particles", &p.update.particles)
	u.bind("u_wind_res", &p.update.windRes)
	u.bind("u_wind_min", &p.update.windMin)
	u.bind("u_wind_max", &p.update.windMax)
	u.bind("u_rand_seed", &p.update.seed)
	u.bind("u_speed_factor", &p.update.speed)
	u.bind("u_drop_rate", &p.update.drop)
	u.bind("u_drop_rate_bump", &p.update.dropBump)
	u.bind("u_particles_res", &p.update.res)

	if err := errors.Join(d.err, s.err, u.err); err != nil {
		return fmt.Errorf("windgl: %w", err)
	}
	p.draw.uniforms = gpucore.NewUniformBlock(p.draw.prog)
	p.screen.uniforms = gpucore.NewUniformBlock(p.screen.prog)
	p.update.uniforms = gpucore.NewUniformBlock(p.update.prog)
	return nil
}

func (p *Pipeline) usable() error {
	switch p.state {
	case StateClosed:
		return ErrClosed
	case StateTicking:
		return ErrBusy
	}
	return nil
}

// SetField replaces the vector field. The previous field texture is
// destroyed once the new one exists.
func (p *Pipeline) SetField(f VectorField) error {
	if err := p.usable(); err != nil {
		return err
	}
	id, err := p.dev.CreateTexture(gpucore.TextureDescriptor{
		Label:  "wind",
		Filter: gpucore.FilterLinear,
		Source: f.Image,
	})
	if err != nil {
		return fmt.Errorf("windgl: field texture: %w", err)
	}
	if p.wind != gpucore.InvalidID {
		p.dev.DestroyTexture(p.wind)
	}
	p.wind = id
	p.field = f
	p.hasField = true
	p.log.Debug("windgl: field set", "width", f.Width, "height", f.Height)
	return nil
}

// Field returns the current field and whether one is set.
func (p *Pipeline) Field() (VectorField, bool) { return p.field, p.hasField }

// SetParticleCount requests n particles. The effective count is R² with
// R = ceil(sqrt(n)). A new count reseeds every particle at a random
// position; the current count is a no-op.
func (p *Pipeline) SetParticleCount(n int) error {
	if err := p.usable(); err != nil {
		return err
	}
	if n < 1 {
		return ErrInvalidParticleCount
	}
	if n == p.requested && p.particles.front() != gpucore.InvalidID {
		return nil
	}

	res := ParticleResolution(n)
	state := make([]byte, res*res*4)
	for i := 0; i < len(state); i += 8 {
		v := p.rng.Uint64()
		for k := 0; k < 8 && i+k < len(state); k++ {
			state[i+k] = byte(v >> (8 * k))
		}
	}
	indices := make([]float32, res*res)
	for i := range indices {
		indices[i] = float32(i)
	}

	var created []gpucore.TextureID
	rollback := func() {
		for _, id := range created {
			p.dev.DestroyTexture(id)
		}
	}
	for _, label := range []string{"particles_a", "particles_b"} {
		id, err := p.dev.CreateTexture(gpucore.TextureDescriptor{
			Label:  label,
			Filter: gpucore.FilterNearest,
			Source: gpucore.FromPixels(state, res, res),
		})
		if err != nil {
			rollback()
			return fmt.Errorf("windgl: particle state: %w", err)
		}
		created = append(created, id)
	}
	index, err := p.dev.CreateBuffer("particle_index", indices)
	if err != nil {
		rollback()
		return fmt.Errorf("windgl: particle index: %w", err)
	}

	for _, id := range p.particles.reset(created[0], created[1]) {
		if id != gpucore.InvalidID {
			p.dev.DestroyTexture(id)
		}
	}
	if p.index != gpucore.InvalidID {
		p.dev.DestroyBuffer(p.index)
	}
	p.index = index
	p.requested = n
	p.res = res
	p.log.Debug("windgl: particle state created", "requested", n, "resolution", res, "count", res*res)
	return nil
}

// ParticleResolution returns the side of the square particle texture for
// a requested count: ceil(sqrt(n)).
func ParticleResolution(n int) int {
	if n < 1 {
		return 0
	}
	r := int(math.Ceil(math.Sqrt(float64(n))))
	for r*r < n {
		r++
	}
	for r > 1 && (r-1)*(r-1) >= n {
		r--
	}
	return r
}

// Resize recreates the trail buffers at w×h, transparent. The particle
// state is kept. The current size is a no-op.
func (p *Pipeline) Resize(w, h int) error {
	if err := p.usable(); err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return ErrInvalidSize
	}
	if w == p.width && h == p.height {
		return nil
	}
	if r, ok := p.dev.(interface{ Resize(w, h int) error }); ok {
		if err := r.Resize(w, h); err != nil {
			return fmt.Errorf("windgl: resize surface: %w", err)
		}
	}
	return p.resizeTrail(w, h)
}

func (p *Pipeline) resizeTrail(w, h int) error {
	var ids [2]gpucore.TextureID
	for i, label := range []string{"trail_background", "trail_screen"} {
		id, err := p.dev.CreateTexture(gpucore.TextureDescriptor{
			Label:  label,
			Filter: gpucore.FilterNearest,
			Source: gpucore.Empty(w, h),
		})
		if err != nil {
			if i == 1 {
				p.dev.DestroyTexture(ids[0])
			}
			return fmt.Errorf("windgl: trail buffer: %w", err)
		}
		ids[i] = id
	}
	for _, id := range p.trail.reset(ids[0], ids[1]) {
		if id != gpucore.InvalidID {
			p.dev.DestroyTexture(id)
		}
	}
	p.width, p.height = w, h
	p.log.Debug("windgl: trail buffers created", "width", w, "height", h)
	return nil
}

// SetColorRamp replaces the speed color ramp.
func (p *Pipeline) SetColorRamp(stops []ColorStop) error {
	if err := p.usable(); err != nil {
		return err
	}
	pix, err := BuildColorRamp(stops)
	if err != nil {
		return err
	}
	id, err := p.dev.CreateTexture(gpucore.TextureDescriptor{
		Label:  "color_ramp",
		Filter: gpucore.FilterLinear,
		Source: gpucore.FromPixels(pix, RampSize, RampSize),
	})
	if err != nil {
		return fmt.Errorf("windgl: color ramp: %w", err)
	}
	if p.ramp != gpucore.InvalidID {
		p.dev.DestroyTexture(p.ramp)
	}
	p.ramp = id
	return nil
}

// Advance runs one tick with t. Without a field it does nothing.
// Device errors abort the tick and are returned; the pipeline should then
// be recreated.
func (p *Pipeline) Advance(t Tunables) error {
	if err := p.usable(); err != nil {
		return err
	}
	if !p.hasField {
		return nil
	}
	p.state = StateTicking
	defer func() { p.state = StateReady }()
	t = t.Clamped()

	p.dev.SetCapability(gpucore.CapabilityDepthTest, false)
	p.dev.SetCapability(gpucore.CapabilityStencilTest, false)
	p.dev.SetCapability(gpucore.CapabilityBlend, false)

	if err := p.bindInputs(); err != nil {
		return err
	}
	if err := p.drawTrail(t); err != nil {
		return fmt.Errorf("windgl: trail pass: %w", err)
	}
	if err := p.present(); err != nil {
		return fmt.Errorf("windgl: present: %w", err)
	}
	p.trail.swap()
	if err := p.updateParticles(t); err != nil {
		return fmt.Errorf("windgl: update pass: %w", err)
	}
	p.particles.swap()
	p.ticks++
	return nil
}

// bindInputs binds the field and the current particle state.
func (p *Pipeline) bindInputs() error {
	if err := p.dev.BindTexture(p.wind, unitWind); err != nil {
		return err
	}
	return p.dev.BindTexture(p.particles.front(), unitParticles)
}

// drawTrail fades the background into the screen texture and draws the
// particles on top.
func (p *Pipeline) drawTrail(t Tunables) error {
	if err := p.dev.BindFramebuffer(p.fb, p.trail.back()); err != nil {
		return err
	}
	p.dev.SetViewport(gpucore.Viewport{Width: p.width, Height: p.height})

	if err := p.drawTexture(p.trail.front(), t.FadeOpacity); err != nil {
		return err
	}
	return p.drawParticles()
}

func (p *Pipeline) drawParticles() error {
	if err := p.bindInputs(); err != nil {
		return err
	}
	if err := p.dev.BindTexture(p.ramp, unitScratch); err != nil {
		return err
	}

	d := &p.draw
	d.uniforms.SetVec2(d.windMin, p.field.UMin, p.field.VMin)
	d.uniforms.SetVec2(d.windMax, p.field.UMax, p.field.VMax)
	d.uniforms.SetFloat(d.res, float32(p.res))

	return p.dev.Draw(gpucore.DrawCall{
		Program:  d.prog,
		Uniforms: d.uniforms,
		Textures: []gpucore.TextureBinding{
			{Slot: d.wind, Unit: unitWind},
			{Slot: d.particles, Unit: unitParticles},
			{Slot: d.ramp, Unit: unitScratch},
		},
		Attribute: gpucore.AttributeBinding{Slot: d.aIndex, Buffer: p.index, Components: 1},
		Topology:  gpucore.TopologyPoints,
		Count:     p.res * p.res,
	})
}

// drawTexture draws tex over the whole viewport scaled by opacity.
func (p *Pipeline) drawTexture(tex gpucore.TextureID, opacity float32) error {
	if err := p.dev.BindTexture(tex, unitScratch); err != nil {
		return err
	}
	s := &p.screen
	s.uniforms.SetFloat(s.opacity, opacity)
	return p.dev.Draw(gpucore.DrawCall{
		Program:   s.prog,
		Uniforms:  s.uniforms,
		Textures:  []gpucore.TextureBinding{{Slot: s.screen, Unit: unitScratch}},
		Attribute: gpucore.AttributeBinding{Slot: s.aPos, Buffer: p.quad, Components: 2},
		Topology:  gpucore.TopologyTriangles,
		Count:     len(shader.QuadVertices) / 2,
	})
}

// present composites the screen texture onto the cleared device surface.
func (p *Pipeline) present() error {
	if err := p.dev.BindFramebuffer(gpucore.InvalidID, gpucore.InvalidID); err != nil {
		return err
	}
	p.dev.SetViewport(gpucore.Viewport{Width: p.width, Height: p.height})
	p.dev.Clear(gputypes.Color{})
	p.dev.SetCapability(gpucore.CapabilityBlend, true)
	p.dev.SetBlendFunc(gpucore.BlendSrcAlpha, gpucore.BlendOneMinusConstantAlpha)
	err := p.drawTexture(p.trail.back(), 1)
	p.dev.SetCapability(gpucore.CapabilityBlend, false)
	return err
}

// updateParticles writes the next particle state.
func (p *Pipeline) updateParticles(t Tunables) error {
	if err := p.dev.BindFramebuffer(p.fb, p.particles.back()); err != nil {
		return err
	}
	p.dev.SetViewport(gpucore.Viewport{Width: p.res, Height: p.res})
	if err := p.bindInputs(); err != nil {
		return err
	}

	u := &p.update
	u.uniforms.SetVec2(u.windRes, float32(p.field.Width), float32(p.field.Height))
	u.uniforms.SetVec2(u.windMin, p.field.UMin, p.field.VMin)
	u.uniforms.SetVec2(u.windMax, p.field.UMax, p.field.VMax)
	u.uniforms.SetFloat(u.seed, p.rng.Float32())
	u.uniforms.SetFloat(u.speed, t.SpeedFactor)
	u.uniforms.SetFloat(u.drop, t.DropRate)
	u.uniforms.SetFloat(u.dropBump, t.DropRateBump)
	u.uniforms.SetFloat(u.res, float32(p.res))

	return p.dev.Draw(gpucore.DrawCall{
		Program:  u.prog,
		Uniforms: u.uniforms,
		Textures: []gpucore.TextureBinding{
			{Slot: u.wind, Unit: unitWind},
			{Slot: u.particles, Unit: unitParticles},
		},
		Attribute: gpucore.AttributeBinding{Slot: u.aPos, Buffer: p.quad, Components: 2},
		Topology:  gpucore.TopologyTriangles,
		Count:     len(shader.QuadVertices) / 2,
	})
}

// State returns the lifecycle state.
func (p *Pipeline) State() State { return p.state }

// ParticleCount returns the effective particle count R².
func (p *Pipeline) ParticleCount() int { return p.res * p.res }

// ParticleResolution returns R, the side of the particle state textures.
func (p *Pipeline) ParticleResolution() int { return p.res }

// ParticleTextures returns the particle state textures. current holds the
// state the next tick reads.
func (p *Pipeline) ParticleTextures() (current, next gpucore.TextureID) {
	return p.particles.front(), p.particles.back()
}

// TrailTextures returns the trail buffers. background is faded into screen
// on the next tick.
func (p *Pipeline) TrailTextures() (background, screen gpucore.TextureID) {
	return p.trail.front(), p.trail.back()
}

// Size returns the trail buffer size.
func (p *Pipeline) Size() (w, h int) { return p.width, p.height }

// Ticks returns the number of completed ticks.
func (p *Pipeline) Ticks() uint64 { return p.ticks }

// Device returns the device the pipeline renders with.
func (p *Pipeline) Device() gpucore.Device { return p.dev }

// Close releases every device resource owned by the pipeline. The device
// itself stays open. Close is idempotent.
func (p *Pipeline) Close() error {
	if p.state == StateClosed {
		return nil
	}
	p.release()
	p.state = StateClosed
	p.checkLive()
	p.log.Info("windgl: pipeline closed", "ticks", p.ticks)
	return nil
}

// checkLive warns when the device holds more objects after release than
// it did before the pipeline was created.
func (p *Pipeline) checkLive() {
	lc, ok := p.dev.(gpucore.LiveCounter)
	if !ok || !p.counted {
		return
	}
	textures, buffers, framebuffers := lc.Live()
	if textures > p.live[0] || buffers > p.live[1] || framebuffers > p.live[2] {
		p.log.Warn("windgl: device objects live after close",
			"textures", textures-p.live[0],
			"buffers", buffers-p.live[1],
			"framebuffers", framebuffers-p.live[2])
	}
}

func (p *Pipeline) release() {
	for _, id := range []gpucore.TextureID{
		p.wind, p.ramp,
		p.particles.buf[0], p.particles.buf[1],
		p.trail.buf[0], p.trail.buf[1],
	} {
		if id != gpucore.InvalidID {
			p.dev.DestroyTexture(id)
		}
	}
	for _, id := range []gpucore.BufferID{p.quad, p.index} {
		if id != gpucore.InvalidID {
			p.dev.DestroyBuffer(id)
		}
	}
	if p.fb != gpucore.InvalidID {
		p.dev.DestroyFramebuffer(p.fb)
	}
	for _, prog := range []*gpucore.Program{p.draw.prog, p.screen.prog, p.update.prog} {
		if prog != nil {
			p.dev.DestroyProgram(prog)
		}
	}
	p.wind, p.ramp, p.quad, p.index, p.fb = 0, 0, 0, 0, 0
	p.particles = texturePair{}
	p.trail = texturePair{}
	p.hasField = false
}
