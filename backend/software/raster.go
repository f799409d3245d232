package software

import (
	"math"

	"github.com/gogpu/windgl/codec"
	"github.com/gogpu/windgl/gpucore"
)

// vertex is a processed vertex in window coordinates.
type vertex struct {
	x, y float64
	out  gpucore.Varyings
}

// rect is a half-open pixel rectangle.
type rect struct {
	x0, y0, x1, y1 int
}

// target is the render target of one draw.
type target struct {
	tex   *texture
	clip  rect
	blend blendState
}

// toWindow maps a clip-space position into the viewport. Clip +Y is row 0.
func toWindow(pos [4]float32, vp gpucore.Viewport) (x, y float64) {
	w := float64(pos[3])
	if w == 0 {
		w = 1
	}
	nx, ny := float64(pos[0])/w, float64(pos[1])/w
	x = float64(vp.X) + (nx+1)/2*float64(vp.Width)
	y = float64(vp.Y) + (1-ny)/2*float64(vp.Height)
	return x, y
}

// write shades one pixel.
func (t *target) write(px, py int, c [4]float32) {
	i := (py*t.tex.width + px) * 4
	p := t.tex.pix[i : i+4 : i+4]
	if t.blend.enabled {
		dst := [4]float32{
			float32(p[0]) / 255,
			float32(p[1]) / 255,
			float32(p[2]) / 255,
			float32(p[3]) / 255,
		}
		c = t.blend.apply(c, dst)
	}
	for k := range 4 {
		p[k] = codec.Quantize(c[k])
	}
}

// point rasterizes a one-pixel point. Returns whether a fragment was shaded.
func (t *target) point(v vertex, shade func(gpucore.Varyings) ([4]float32, bool)) bool {
	px, py := int(math.Floor(v.x)), int(math.Floor(v.y))
	if px < t.clip.x0 || px >= t.clip.x1 || py < t.clip.y0 || py >= t.clip.y1 {
		return false
	}
	c, ok := shade(v.out)
	if !ok {
		return false
	}
	t.write(px, py, c)
	return true
}

func orient(a, b vertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// owns breaks ties for pixel centers exactly on an edge. Adjacent triangles
// of equal winding traverse a shared edge in opposite directions, so exactly
// one of them owns it.
func owns(a, b vertex) bool {
	dy := b.y - a.y
	return dy > 0 || (dy == 0 && b.x < a.x)
}

// triangle rasterizes one triangle at pixel centers with barycentric
// interpolation of the varyings. Returns the number of shaded fragments.
func (t *target) triangle(v0, v1, v2 vertex, shade func(gpucore.Varyings) ([4]float32, bool)) int {
	area := orient(v0, v1, v2.x, v2.y)
	if area == 0 {
		return 0
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	x0 := max(int(math.Floor(min(v0.x, v1.x, v2.x))), t.clip.x0)
	x1 := min(int(math.Ceil(max(v0.x, v1.x, v2.x))), t.clip.x1)
	y0 := max(int(math.Floor(min(v0.y, v1.y, v2.y))), t.clip.y0)
	y1 := min(int(math.Ceil(max(v0.y, v1.y, v2.y))), t.clip.y1)

	own0, own1, own2 := owns(v1, v2), owns(v2, v0), owns(v0, v1)
	inside := func(e float64, own bool) bool { return e > 0 || (e == 0 && own) }

	shaded := 0
	for py := y0; py < y1; py++ {
		cy := float64(py) + 0.5
		for px := x0; px < x1; px++ {
			cx := float64(px) + 0.5
			e0 := orient(v1, v2, cx, cy)
			e1 := orient(v2, v0, cx, cy)
			e2 := orient(v0, v1, cx, cy)
			if !inside(e0, own0) || !inside(e1, own1) || !inside(e2, own2) {
				continue
			}
			l0, l1, l2 := e0/area, e1/area, e2/area
			var in gpucore.Varyings
			for k := range in {
				in[k] = float32(l0*float64(v0.out[k]) + l1*float64(v1.out[k]) + l2*float64(v2.out[k]))
			}
			c, ok := shade(in)
			if !ok {
				continue
			}
			t.write(px, py, c)
			shaded++
		}
	}
	return shaded
}
