package gpucore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"
)

// ProgramDescriptor describes a vertex+fragment program.
//
// Vertex and Fragment are separate WGSL modules, each holding exactly one
// entry point of its stage. All resources live in bind group 0. A texture
// named t is sampled through a sampler named t_sampler when the stage
// declares one. Uniforms are members of a single var<uniform> struct.
type ProgramDescriptor struct {
	Label    string
	Vertex   string
	Fragment string

	// Reference builds the CPU kernel the software device executes for
	// this program. Hardware devices ignore it.
	Reference func(p *Program) (Kernel, error)
}

// SlotKind classifies a named program input.
type SlotKind uint8

const (
	// SlotAttribute is a per-vertex input of the vertex stage.
	SlotAttribute SlotKind = iota

	// SlotTexture is a sampled texture.
	SlotTexture

	// SlotSampler is a sampler paired with a texture.
	SlotSampler

	// SlotUniform is a member of the uniform block.
	SlotUniform

	// SlotUniformBlock is the uniform buffer binding itself.
	SlotUniformBlock
)

var slotKindNames = [...]string{"attribute", "texture", "sampler", "uniform", "uniform block"}

// String returns the kind name.
func (k SlotKind) String() string {
	if int(k) < len(slotKindNames) {
		return slotKindNames[k]
	}
	return fmt.Sprintf("SlotKind(%d)", k)
}

// Slot is a resolved program input. Slots are looked up once by name
// and reused for every draw.
type Slot struct {
	Name string
	Kind SlotKind
	Type string

	// Location is the attribute location (SlotAttribute only).
	Location int

	// Binding is the group 0 binding (textures, samplers, the uniform block).
	Binding int

	// Offset and Size locate a uniform inside the uniform block.
	Offset int
	Size   int
}

// Binding is one entry of a program's bind group layout.
type Binding struct {
	Binding    uint32
	Kind       SlotKind
	Name       string
	Visibility gputypes.ShaderStage
}

// Program is a compiled and linked vertex+fragment program.
type Program struct {
	label string
	desc  ProgramDescriptor

	slots    map[string]Slot
	bindings []Binding
	varyings []string

	uniformBinding int
	uniformSize    int

	vertexSPIRV   []uint32
	fragmentSPIRV []uint32

	vertexEntry   string
	fragmentEntry string

	kernel    Kernel
	kernelErr error
	built     bool

	handle any
}

// Label returns the program label.
func (p *Program) Label() string { return p.label }

// Slot returns the input with the given name.
func (p *Program) Slot(name string) (Slot, error) {
	s, ok := p.slots[name]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %s has no input %q", ErrUnknownSlot, p.label, name)
	}
	return s, nil
}

// MustSlot is like Slot but panics on unknown names. It is meant for
// kernels resolving inputs of their own program.
func (p *Program) MustSlot(name string) Slot {
	s, err := p.Slot(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Slots returns all inputs sorted by name.
func (p *Program) Slots() []Slot {
	out := make([]Slot, 0, len(p.slots))
	for _, s := range p.slots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Bindings returns the bind group 0 layout sorted by binding.
func (p *Program) Bindings() []Binding { return p.bindings }

// Varyings returns the names of the interpolated vertex outputs by location.
func (p *Program) Varyings() []string { return p.varyings }

// UniformBinding returns the uniform block binding, or -1 without uniforms.
func (p *Program) UniformBinding() int { return p.uniformBinding }

// UniformSize returns the uniform block size rounded up to 16 bytes.
func (p *Program) UniformSize() int { return p.uniformSize }

// VertexSPIRV returns the compiled vertex module.
func (p *Program) VertexSPIRV() []uint32 { return p.vertexSPIRV }

// FragmentSPIRV returns the compiled fragment module.
func (p *Program) FragmentSPIRV() []uint32 { return p.fragmentSPIRV }

// EntryPoints returns the vertex and fragment entry point names.
func (p *Program) EntryPoints() (vertex, fragment string) {
	return p.vertexEntry, p.fragmentEntry
}

// Kernel returns the reference kernel, building it on first use.
func (p *Program) Kernel() (Kernel, error) {
	if !p.built {
		p.built = true
		if p.desc.Reference == nil {
			p.kernelErr = fmt.Errorf("%w: %s", ErrNoKernel, p.label)
		} else {
			p.kernel, p.kernelErr = p.desc.Reference(p)
		}
	}
	return p.kernel, p.kernelErr
}

// Handle returns the backend object attached with SetHandle.
func (p *Program) Handle() any { return p.handle }

// SetHandle attaches a backend object to the program.
func (p *Program) SetHandle(h any) { p.handle = h }

// CompileProgram compiles both stages of desc to SPIR-V, reflects their
// interfaces and links them. Devices call it from CompileProgram.
//
// Compilation failures are reported as *ShaderCompileError and interface
// mismatches as *ProgramLinkError.
func CompileProgram(desc ProgramDescriptor) (*Program, error) {
	vs, vsi, err := compileStage(desc.Label, StageVertex, desc.Vertex)
	if err != nil {
		return nil, err
	}
	fs, fsi, err := compileStage(desc.Label, StageFragment, desc.Fragment)
	if err != nil {
		return nil, err
	}

	p := &Program{
		label:          desc.Label,
		desc:           desc,
		slots:          make(map[string]Slot),
		uniformBinding: -1,
		vertexSPIRV:    vs,
		fragmentSPIRV:  fs,
	}
	if err := p.link(vsi, fsi); err != nil {
		return nil, err
	}
	return p, nil
}

func compileStage(label string, stage Stage, src string) ([]uint32, *stageInterface, error) {
	fail := func(err error) error {
		return &ShaderCompileError{Program: label, Stage: stage, Log: err.Error(), Err: err}
	}
	if strings.TrimSpace(src) == "" {
		return nil, nil, fail(fmt.Errorf("empty source"))
	}
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, nil, fail(err)
	}
	mod, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, nil, fail(err)
	}
	verrs, err := naga.Validate(mod)
	if err != nil {
		return nil, nil, fail(err)
	}
	if len(verrs) > 0 {
		return nil, nil, fail(verrs[0])
	}
	si, err := reflectStage(mod, stage)
	if err != nil {
		return nil, nil, fail(err)
	}
	spirvBytes, err := naga.GenerateSPIRV(mod, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, nil, fail(err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, si, nil
}

func (p *Program) link(vs, fs *stageInterface) error {
	fail := func(format string, args ...any) error {
		return &ProgramLinkError{Program: p.label, Log: fmt.Sprintf(format, args...)}
	}

	p.vertexEntry, p.fragmentEntry = vs.entry, fs.entry

	outputs := make(map[int]stageVar, len(vs.outputs))
	for _, o := range vs.outputs {
		outputs[o.location] = o
	}
	for _, in := range fs.inputs {
		o, ok := outputs[in.location]
		if !ok {
			return fail("fragment input %s (location %d) is not written by the vertex stage", in.name, in.location)
		}
		if o.typ != in.typ {
			return fail("varying location %d: vertex writes %s, fragment reads %s", in.location, o.typ, in.typ)
		}
	}
	for _, o := range vs.outputs {
		p.varyings = append(p.varyings, o.name)
	}

	for _, in := range vs.inputs {
		p.slots[in.name] = Slot{Name: in.name, Kind: SlotAttribute, Type: in.typ, Location: in.location}
	}

	byBinding := make(map[int]*Binding)
	bind := func(stage gputypes.ShaderStage, kind SlotKind, v stageVar) error {
		if v.group != 0 {
			return fail("%s uses group %d, only group 0 is supported", v.name, v.group)
		}
		if b, ok := byBinding[v.binding]; ok {
			if b.Name != v.name || b.Kind != kind {
				return fail("binding %d declared as %s and %s", v.binding, b.Name, v.name)
			}
			if prev := p.slots[v.name]; prev.Type != v.typ {
				return fail("%s declared as %s and %s", v.name, prev.Type, v.typ)
			}
			b.Visibility |= stage
			return nil
		}
		if prev, ok := p.slots[v.name]; ok {
			return fail("%s bound at %d and %d", v.name, prev.Binding, v.binding)
		}
		byBinding[v.binding] = &Binding{Binding: uint32(v.binding), Kind: kind, Name: v.name, Visibility: stage}
		p.slots[v.name] = Slot{Name: v.name, Kind: kind, Type: v.typ, Location: -1, Binding: v.binding}
		return nil
	}

	var block *uniformBlock
	for _, m := range []struct {
		si    *stageInterface
		stage gputypes.ShaderStage
	}{{vs, gputypes.ShaderStageVertex}, {fs, gputypes.ShaderStageFragment}} {
		for _, t := range m.si.textures {
			if err := bind(m.stage, SlotTexture, t); err != nil {
				return err
			}
		}
		for _, s := range m.si.samplers {
			if err := bind(m.stage, SlotSampler, s); err != nil {
				return err
			}
		}
		if len(m.si.uniforms) > 1 {
			return fail("more than one uniform block in one stage")
		}
		for i := range m.si.uniforms {
			u := m.si.uniforms[i]
			if block != nil && !sameLayout(block, &u) {
				return fail("uniform block %s differs between stages", u.typ)
			}
			if err := bind(m.stage, SlotUniformBlock, u.stageVar); err != nil {
				return err
			}
			block = &u
		}
	}

	for name, s := range p.slots {
		if s.Kind != SlotSampler {
			continue
		}
		tex, ok := p.slots[strings.TrimSuffix(name, "_sampler")]
		if !strings.HasSuffix(name, "_sampler") || !ok || tex.Kind != SlotTexture {
			return fail("sampler %s does not pair with a texture", name)
		}
	}

	if block != nil {
		p.uniformBinding = block.binding
		p.uniformSize = (block.size + 15) / 16 * 16
		for _, m := range block.members {
			if _, ok := p.slots[m.name]; ok {
				return fail("uniform %s shadows another input", m.name)
			}
			p.slots[m.name] = Slot{
				Name:     m.name,
				Kind:     SlotUniform,
				Type:     m.typ,
				Location: -1,
				Binding:  block.binding,
				Offset:   m.offset,
				Size:     m.size,
			}
		}
	}

	for _, b := range byBinding {
		p.bindings = append(p.bindings, *b)
	}
	sort.Slice(p.bindings, func(i, j int) bool { return p.bindings[i].Binding < p.bindings[j].Binding })
	return nil
}

func sameLayout(a, b *uniformBlock) bool {
	if a.typ != b.typ || a.size != b.size || len(a.members) != len(b.members) {
		return false
	}
	for i := range a.members {
		ma, mb := a.members[i], b.members[i]
		if ma.name != mb.name || ma.typ != mb.typ || ma.offset != mb.offset {
			return false
		}
	}
	return true
}
