//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/windgl/gpucore"
)

// pipelineKey selects a render pipeline variant of a program.
type pipelineKey struct {
	topology   gpucore.Topology
	blend      blendState
	location   int
	components int
}

// program holds the HAL objects of a compiled gpucore.Program.
type program struct {
	label      string
	vertex     hal.ShaderModule
	fragment   hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[pipelineKey]hal.RenderPipeline

	vsEntry, fsEntry string
	bindings         []gpucore.Binding
}

func newProgram(device hal.Device, p *gpucore.Program) (*program, error) {
	hp := &program{
		label:     p.Label(),
		bindings:  p.Bindings(),
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}
	hp.vsEntry, hp.fsEntry = p.EntryPoints()

	var err error
	hp.vertex, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.Label() + "_vs",
		Source: hal.ShaderSource{SPIRV: p.VertexSPIRV()},
	})
	if err != nil {
		return nil, &gpucore.ShaderCompileError{Program: p.Label(), Stage: gpucore.StageVertex, Err: err}
	}
	hp.fragment, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.Label() + "_fs",
		Source: hal.ShaderSource{SPIRV: p.FragmentSPIRV()},
	})
	if err != nil {
		hp.destroy(device)
		return nil, &gpucore.ShaderCompileError{Program: p.Label(), Stage: gpucore.StageFragment, Err: err}
	}

	hp.layout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.Label() + "_layout",
		Entries: layoutEntries(hp.bindings),
	})
	if err != nil {
		hp.destroy(device)
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	hp.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.Label() + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{hp.layout},
	})
	if err != nil {
		hp.destroy(device)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	return hp, nil
}

// layoutEntries maps program bindings to bind group layout entries.
func layoutEntries(bindings []gpucore.Binding) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		e := gputypes.BindGroupLayoutEntry{Binding: b.Binding, Visibility: b.Visibility}
		switch b.Kind {
		case gpucore.SlotTexture:
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case gpucore.SlotSampler:
			e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		case gpucore.SlotUniformBlock:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		default:
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// pipeline returns the render pipeline for key, creating it on first use.
func (hp *program) pipeline(device hal.Device, key pipelineKey) (hal.RenderPipeline, error) {
	if rp, ok := hp.pipelines[key]; ok {
		return rp, nil
	}
	format, err := vertexFormat(key.components)
	if err != nil {
		return nil, err
	}
	topology := gputypes.PrimitiveTopologyTriangleList
	if key.topology == gpucore.TopologyPoints {
		topology = gputypes.PrimitiveTopologyPointList
	}

	target := gputypes.ColorTargetState{
		Format:    gputypes.TextureFormatRGBA8Unorm,
		WriteMask: gputypes.ColorWriteMaskAll,
	}
	if key.blend.enabled {
		bs := key.blend.state()
		target.Blend = &bs
	}

	rp, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s_pipeline_%d", hp.label, len(hp.pipelines)),
		Layout: hp.pipeLayout,
		Vertex: hal.VertexState{
			Module:     hp.vertex,
			EntryPoint: hp.vsEntry,
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: uint64(key.components * 4),
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: format, Offset: 0, ShaderLocation: uint32(key.location)},
				},
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     hp.fragment,
			EntryPoint: hp.fsEntry,
			Targets:    []gputypes.ColorTargetState{target},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, &gpucore.ProgramLinkError{Program: hp.label, Log: err.Error()}
	}
	hp.pipelines[key] = rp
	return rp, nil
}

// vertexFormat returns the float32 vertex format with n components.
func vertexFormat(n int) (gputypes.VertexFormat, error) {
	switch n {
	case 1:
		return gputypes.VertexFormatFloat32, nil
	case 2:
		return gputypes.VertexFormatFloat32x2, nil
	case 3:
		return gputypes.VertexFormatFloat32x3, nil
	case 4:
		return gputypes.VertexFormatFloat32x4, nil
	default:
		return 0, fmt.Errorf("wgpu: %d attribute components", n)
	}
}

// destroy releases the HAL objects in reverse creation order.
func (hp *program) destroy(device hal.Device) {
	for k, rp := range hp.pipelines {
		device.DestroyRenderPipeline(rp)
		delete(hp.pipelines, k)
	}
	if hp.pipeLayout != nil {
		device.DestroyPipelineLayout(hp.pipeLayout)
		hp.pipeLayout = nil
	}
	if hp.layout != nil {
		device.DestroyBindGroupLayout(hp.layout)
		hp.layout = nil
	}
	if hp.fragment != nil {
		device.DestroyShaderModule(hp.fragment)
		hp.fragment = nil
	}
	if hp.vertex != nil {
		device.DestroyShaderModule(hp.vertex)
		hp.vertex = nil
	}
}
