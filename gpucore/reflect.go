package gpucore

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga/ir"
)

// stageVar is a located or bound declaration of one stage.
type stageVar struct {
	name     string
	typ      string
	location int // -1 without @location
	group    int
	binding  int
}

type uniformMember struct {
	name   string
	typ    string
	offset int
	size   int
}

// uniformBlock is a var<uniform> struct with its host-shareable layout.
type uniformBlock struct {
	stageVar
	members []uniformMember
	size    int
}

// stageInterface is what linking needs from one lowered stage.
type stageInterface struct {
	entry    string
	inputs   []stageVar
	outputs  []stageVar
	textures []stageVar
	samplers []stageVar
	uniforms []uniformBlock
}

func irStage(s Stage) ir.ShaderStage {
	if s == StageVertex {
		return ir.StageVertex
	}
	return ir.StageFragment
}

// reflectStage reads the first entry point of stage and every bound
// global of mod.
func reflectStage(mod *ir.Module, stage Stage) (*stageInterface, error) {
	var ep *ir.EntryPoint
	for i := range mod.EntryPoints {
		if mod.EntryPoints[i].Stage == irStage(stage) {
			ep = &mod.EntryPoints[i]
			break
		}
	}
	if ep == nil {
		return nil, fmt.Errorf("no @%s entry point", stage)
	}

	si := &stageInterface{entry: ep.Name}
	for _, arg := range ep.Function.Arguments {
		located(mod, arg.Name, arg.Type, arg.Binding, &si.inputs)
	}
	if res := ep.Function.Result; res != nil {
		located(mod, ep.Name, res.Type, res.Binding, &si.outputs)
	}
	byLocation := func(vs []stageVar) {
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].location < vs[j].location })
	}
	byLocation(si.inputs)
	byLocation(si.outputs)

	for _, gv := range mod.GlobalVariables {
		if gv.Binding == nil || int(gv.Type) >= len(mod.Types) {
			continue
		}
		v := stageVar{
			name:     gv.Name,
			typ:      typeName(mod, gv.Type),
			location: -1,
			group:    int(gv.Binding.Group),
			binding:  int(gv.Binding.Binding),
		}
		switch inner := mod.Types[gv.Type].Inner.(type) {
		case ir.ImageType:
			si.textures = append(si.textures, v)
		case ir.SamplerType:
			si.samplers = append(si.samplers, v)
		case ir.StructType:
			if gv.Space != ir.SpaceUniform {
				return nil, fmt.Errorf("%s: only uniform buffers are supported", gv.Name)
			}
			b := uniformBlock{stageVar: v, size: int(inner.Span)}
			for _, m := range inner.Members {
				b.members = append(b.members, uniformMember{
					name:   m.Name,
					typ:    typeName(mod, m.Type),
					offset: int(m.Offset),
					size:   int(ir.TypeSize(mod, m.Type)),
				})
			}
			si.uniforms = append(si.uniforms, b)
		default:
			return nil, fmt.Errorf("%s: unsupported resource type %s", gv.Name, v.typ)
		}
	}
	return si, nil
}

// located appends the @location declarations of a value, descending into
// struct members.
func located(mod *ir.Module, name string, ty ir.TypeHandle, b *ir.Binding, out *[]stageVar) {
	if b != nil {
		if loc, ok := (*b).(ir.LocationBinding); ok {
			*out = append(*out, stageVar{name: name, typ: typeName(mod, ty), location: int(loc.Location)})
		}
		return
	}
	if int(ty) >= len(mod.Types) {
		return
	}
	if st, ok := mod.Types[ty].Inner.(ir.StructType); ok {
		for _, m := range st.Members {
			located(mod, m.Name, m.Type, m.Binding, out)
		}
	}
}

// typeName spells a type the way WGSL source does.
func typeName(mod *ir.Module, h ir.TypeHandle) string {
	if int(h) >= len(mod.Types) {
		return fmt.Sprintf("type#%d", h)
	}
	t := mod.Types[h]
	switch in := t.Inner.(type) {
	case ir.ScalarType:
		return scalarName(in)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", in.Size, scalarName(in.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", in.Columns, in.Rows, scalarName(in.Scalar))
	case ir.ArrayType:
		if in.Size.Constant != nil {
			return fmt.Sprintf("array<%s, %d>", typeName(mod, in.Base), *in.Size.Constant)
		}
		return fmt.Sprintf("array<%s>", typeName(mod, in.Base))
	case ir.SamplerType:
		if in.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ir.ImageType:
		return imageName(in)
	}
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("type#%d", h)
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		return fmt.Sprintf("f%d", int(s.Width)*8)
	case ir.ScalarSint:
		return "i32"
	case ir.ScalarUint:
		return "u32"
	case ir.ScalarBool:
		return "bool"
	}
	return "abstract"
}

func imageName(img ir.ImageType) string {
	dim := [...]string{"1d", "2d", "3d", "cube"}[img.Dim]
	if img.Arrayed {
		dim += "_array"
	}
	switch img.Class {
	case ir.ImageClassDepth:
		return "texture_depth_" + dim
	case ir.ImageClassStorage:
		return "texture_storage_" + dim
	}
	prefix := "texture_"
	if img.Multisampled {
		prefix = "texture_multisampled_"
	}
	return fmt.Sprintf("%s%s<%s>", prefix, dim, scalarName(ir.ScalarType{Kind: img.SampledKind, Width: 4}))
}
