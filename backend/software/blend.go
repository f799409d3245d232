package software

import "github.com/gogpu/windgl/gpucore"

// blendState is the fixed-function blend equation
//
//	out = src*srcFactor + dst*dstFactor
//
// applied to all four channels, with the constant blend color fixed at
// transparent black.
type blendState struct {
	enabled bool
	src     gpucore.BlendFactor
	dst     gpucore.BlendFactor
}

// factor returns the weight of a blend factor for one fragment.
func factor(f gpucore.BlendFactor, src [4]float32) float32 {
	switch f {
	case gpucore.BlendZero:
		return 0
	case gpucore.BlendOne:
		return 1
	case gpucore.BlendSrcAlpha:
		return src[3]
	case gpucore.BlendOneMinusSrcAlpha:
		return 1 - src[3]
	case gpucore.BlendOneMinusConstantAlpha:
		// Constant alpha is 0.
		return 1
	default:
		return 1
	}
}

// apply blends src over the stored texel dst. Both are normalized.
func (b blendState) apply(src, dst [4]float32) [4]float32 {
	if !b.enabled {
		return src
	}
	fs := factor(b.src, src)
	fd := factor(b.dst, src)
	var out [4]float32
	for i := range out {
		out[i] = src[i]*fs + dst[i]*fd
	}
	return out
}
