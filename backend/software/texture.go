package software

import (
	"math"

	"github.com/gogpu/windgl/gpucore"
)

// texture is an RGBA8 image with row 0 at the top.
type texture struct {
	label  string
	width  int
	height int
	filter gpucore.FilterMode
	pix    []byte
}

func newTexture(label string, filter gpucore.FilterMode, src gpucore.TextureSource) (*texture, error) {
	pix, w, h, err := src.RGBA()
	if err != nil {
		return nil, err
	}
	return &texture{
		label:  label,
		width:  w,
		height: h,
		filter: filter,
		pix:    append([]byte(nil), pix...),
	}, nil
}

func (t *texture) texel(x, y int) [4]float32 {
	x = min(max(x, 0), t.width-1)
	y = min(max(y, 0), t.height-1)
	i := (y*t.width + x) * 4
	p := t.pix[i : i+4 : i+4]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

func (t *texture) clear(c [4]uint8) {
	for i := 0; i < len(t.pix); i += 4 {
		copy(t.pix[i:i+4], c[:])
	}
}

// sampler reads a texture with its own filter and clamp-to-edge wrapping.
type sampler struct {
	tex *texture
}

var _ gpucore.Sampler = sampler{}

func (s sampler) Size() (int, int) { return s.tex.width, s.tex.height }

func (s sampler) Load(x, y int) [4]float32 { return s.tex.texel(x, y) }

func (s sampler) Sample(u, v float32) [4]float32 {
	t := s.tex
	fx := float64(u) * float64(t.width)
	fy := float64(v) * float64(t.height)
	if t.filter == gpucore.FilterNearest {
		return t.texel(int(math.Floor(fx)), int(math.Floor(fy)))
	}

	fx -= 0.5
	fy -= 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	ax, ay := float32(fx-x0), float32(fy-y0)
	ix, iy := int(x0), int(y0)

	c00 := t.texel(ix, iy)
	c10 := t.texel(ix+1, iy)
	c01 := t.texel(ix, iy+1)
	c11 := t.texel(ix+1, iy+1)

	var out [4]float32
	for i := range out {
		top := c00[i] + (c10[i]-c00[i])*ax
		bottom := c01[i] + (c11[i]-c01[i])*ax
		out[i] = top + (bottom-top)*ay
	}
	return out
}
