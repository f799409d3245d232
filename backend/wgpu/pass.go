//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/windgl/gpucore"
)

// gpuTimeout bounds blocking waits on submitted work.
const gpuTimeout = 5 * time.Second

// blendState mirrors the gpucore blend switches. The constant blend color
// is transparent black.
type blendState struct {
	enabled  bool
	src, dst gpucore.BlendFactor
}

func (b blendState) state() gputypes.BlendState {
	c := gputypes.BlendComponent{
		SrcFactor: blendFactor(b.src),
		DstFactor: blendFactor(b.dst),
		Operation: gputypes.BlendOperationAdd,
	}
	return gputypes.BlendState{Color: c, Alpha: c}
}

// blendFactor maps a gpucore factor. One minus a zero constant alpha is One.
func blendFactor(f gpucore.BlendFactor) gputypes.BlendFactor {
	switch f {
	case gpucore.BlendZero:
		return gputypes.BlendFactorZero
	case gpucore.BlendSrcAlpha:
		return gputypes.BlendFactorSrcAlpha
	case gpucore.BlendOneMinusSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha
	default:
		return gputypes.BlendFactorOne
	}
}

// inflight is a submission whose objects are released once its fence signals.
type inflight struct {
	fence    hal.Fence
	cmd      hal.CommandBuffer
	releases []func()
}

// submitter submits command buffers without waiting and defers object
// destruction until the GPU is done with them.
type submitter struct {
	device  hal.Device
	queue   hal.Queue
	pending []*inflight
}

// submit submits cmd with a fresh fence.
func (s *submitter) submit(cmd hal.CommandBuffer) error {
	fence, err := s.device.CreateFence()
	if err != nil {
		s.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("create fence: %w", err)
	}
	if err := s.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		s.device.DestroyFence(fence)
		s.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("submit: %w", err)
	}
	s.pending = append(s.pending, &inflight{fence: fence, cmd: cmd})
	s.reclaim()
	return nil
}

// retire runs release after all work submitted so far completes.
func (s *submitter) retire(release func()) {
	if len(s.pending) == 0 {
		release()
		return
	}
	last := s.pending[len(s.pending)-1]
	last.releases = append(last.releases, release)
}

// reclaim completes finished submissions in order without blocking.
func (s *submitter) reclaim() {
	n := 0
	for _, f := range s.pending {
		done, err := s.device.Wait(f.fence, 1, 0)
		if err != nil || !done {
			break
		}
		s.finish(f)
		n++
	}
	s.pending = s.pending[n:]
}

// drain blocks until every submission completes.
func (s *submitter) drain() error {
	defer func() { s.pending = nil }()
	for i, f := range s.pending {
		ok, err := s.device.Wait(f.fence, 1, gpuTimeout)
		if err != nil || !ok {
			// Leak the rest rather than destroy objects the GPU may still use.
			s.pending = s.pending[i:]
			return fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
		}
		s.finish(f)
	}
	return nil
}

func (s *submitter) finish(f *inflight) {
	s.device.FreeCommandBuffer(f.cmd)
	s.device.DestroyFence(f.fence)
	for _, r := range f.releases {
		r()
	}
}

// encode records one render pass into the bound target and submits it.
// load selects LoadOpLoad; otherwise the target is cleared to clearColor.
func (d *Device) encode(label string, dst *texture, load bool, clearColor gputypes.Color, record func(rp hal.RenderPassEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	op := gputypes.LoadOpClear
	if load {
		op = gputypes.LoadOpLoad
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dst.view,
			LoadOp:     op,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearColor,
		}},
	})
	if record != nil {
		record(rp)
	}
	rp.End()
	dst.usage = gputypes.TextureUsageRenderAttachment

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	if err := d.sub.submit(cmd); err != nil {
		return fmt.Errorf("wgpu: %w", err)
	}
	return nil
}

// Clear clears the whole bound target.
func (d *Device) Clear(c gputypes.Color) {
	if d.closed {
		return
	}
	dst, _, err := d.target()
	if err != nil {
		d.logger.Warn("wgpu: clear without target", "error", err)
		return
	}
	if err := d.encode("clear", dst, false, c, nil); err != nil {
		d.logger.Warn("wgpu: clear failed", "error", err)
	}
}

// Draw records and submits one draw call into the bound target.
func (d *Device) Draw(call gpucore.DrawCall) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	if call.Program == nil {
		return fmt.Errorf("wgpu: draw without program")
	}
	hp, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("wgpu: program %s not compiled on this device", call.Program.Label())
	}
	dst, dstID, err := d.target()
	if err != nil {
		return err
	}

	buf, ok := d.buffers[call.Attribute.Buffer]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownBuffer, call.Attribute.Buffer)
	}
	comps := call.Attribute.Components
	if call.First < 0 || call.Count < 0 || (call.First+call.Count)*comps > buf.floats {
		return fmt.Errorf("wgpu: vertex range [%d, %d) exceeds buffer", call.First, call.First+call.Count)
	}
	if call.Count == 0 {
		return nil
	}

	vp, err := clampViewport(d.viewport, dst.width, dst.height)
	if err != nil {
		return err
	}

	rp, err := hp.pipeline(d.device, pipelineKey{
		topology:   call.Topology,
		blend:      d.blend,
		location:   call.Attribute.Slot.Location,
		components: comps,
	})
	if err != nil {
		return err
	}

	entries, transient, err := d.bindEntries(hp, call, dstID)
	if err != nil {
		return err
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   hp.label + "_bind",
		Layout:  hp.layout,
		Entries: entries,
	})
	if err != nil {
		transient()
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}

	err = d.encode(hp.label, dst, true, gputypes.Color{}, func(pass hal.RenderPassEncoder) {
		pass.SetViewport(float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height), 0, 1)
		pass.SetPipeline(rp)
		pass.SetBindGroup(0, group, nil)
		pass.SetVertexBuffer(0, buf.buf, 0)
		pass.Draw(uint32(call.Count), 1, uint32(call.First), 0)
	})
	d.sub.retire(func() {
		d.device.DestroyBindGroup(group)
		transient()
	})
	return err
}

// bindEntries builds the bind group of a draw. The returned release
// function destroys the uniform buffer created for it.
func (d *Device) bindEntries(hp *program, call gpucore.DrawCall, dstID gpucore.TextureID) ([]gputypes.BindGroupEntry, func(), error) {
	units := make(map[string]int, len(call.Textures))
	for _, b := range call.Textures {
		if b.Unit < 0 || b.Unit >= gpucore.NumTextureUnits {
			return nil, nil, fmt.Errorf("%w: %d", gpucore.ErrInvalidUnit, b.Unit)
		}
		units[b.Slot.Name] = b.Unit
	}
	lookup := func(name string) (*texture, error) {
		unit, ok := units[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, gpucore.ErrUnknownSlot)
		}
		id := d.units[unit]
		t, ok := d.textures[id]
		if !ok {
			return nil, fmt.Errorf("%s: unit %d: %w", name, unit, gpucore.ErrUnknownTexture)
		}
		if id == dstID {
			return nil, fmt.Errorf("%s: %w", name, gpucore.ErrFeedbackLoop)
		}
		return t, nil
	}

	var uniform hal.Buffer
	release := func() {
		if uniform != nil {
			d.device.DestroyBuffer(uniform)
		}
	}

	entries := make([]gputypes.BindGroupEntry, 0, len(hp.bindings))
	for _, b := range hp.bindings {
		switch b.Kind {
		case gpucore.SlotTexture:
			t, err := lookup(b.Name)
			if err != nil {
				release()
				return nil, nil, err
			}
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  b.Binding,
				Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
			})
		case gpucore.SlotSampler:
			t, err := lookup(samplerTexture(b.Name))
			if err != nil {
				release()
				return nil, nil, err
			}
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  b.Binding,
				Resource: gputypes.SamplerBinding{Sampler: d.samplers[t.filter].NativeHandle()},
			})
		case gpucore.SlotUniformBlock:
			if call.Uniforms == nil {
				release()
				return nil, nil, fmt.Errorf("wgpu: %s: draw without uniforms", hp.label)
			}
			data := call.Uniforms.Bytes()
			var err error
			uniform, err = d.device.CreateBuffer(&hal.BufferDescriptor{
				Label: hp.label + "_uniforms",
				Size:  uint64(len(data)),
				Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("wgpu: create uniform buffer: %w", err)
			}
			d.queue.WriteBuffer(uniform, 0, data)
			call.Uniforms.MarkClean()
			entries = append(entries, gputypes.BindGroupEntry{
				Binding: b.Binding,
				Resource: gputypes.BufferBinding{
					Buffer: uniform.NativeHandle(), Offset: 0, Size: uint64(len(data)),
				},
			})
		}
	}
	return entries, release, nil
}

// samplerTexture returns the texture a sampler named t_sampler pairs with.
func samplerTexture(sampler string) string {
	return strings.TrimSuffix(sampler, "_sampler")
}

// clampViewport resolves the viewport against a width×height target.
// An empty viewport covers the whole target.
func clampViewport(vp gpucore.Viewport, width, height int) (gpucore.Viewport, error) {
	if vp.Empty() {
		return gpucore.Viewport{Width: width, Height: height}, nil
	}
	x0, y0 := max(vp.X, 0), max(vp.Y, 0)
	x1, y1 := min(vp.X+vp.Width, width), min(vp.Y+vp.Height, height)
	if x1 <= x0 || y1 <= y0 {
		return gpucore.Viewport{}, fmt.Errorf("%w: %+v in %dx%d", ErrViewport, vp, width, height)
	}
	return gpucore.Viewport{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, nil
}

// floatBytes encodes data as little-endian float32s.
func floatBytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
