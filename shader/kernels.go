package shader

import (
	"fmt"
	"math"

	"github.com/gogpu/windgl/codec"
	"github.com/gogpu/windgl/gpucore"
)

// slots resolves names against p, reporting the first missing one.
func slots(p *gpucore.Program, names ...string) ([]gpucore.Slot, error) {
	out := make([]gpucore.Slot, len(names))
	for i, n := range names {
		s, err := p.Slot(n)
		if err != nil {
			return nil, fmt.Errorf("shader: %w", err)
		}
		out[i] = s
	}
	return out, nil
}

// windSpeed decodes a field sample and returns the velocity and speed_t.
func windSpeed(ctx *gpucore.ShadingContext, wind, lo, hi gpucore.Slot, x, y float32) (u, v, speedT float32) {
	texel := ctx.Texture(wind).Sample(x, y)
	var b codec.Bounds
	b.UMin, b.VMin = ctx.Vec2(lo)
	b.UMax, b.VMax = ctx.Vec2(hi)
	u, v = codec.Velocity(texel[0], texel[1], b)
	return u, v, codec.SpeedT(u, v, b.UMax, b.VMax)
}

func floor32(x float32) float32 { return float32(math.Floor(float64(x))) }

func fract32(x float32) float32 { return x - floor32(x) }

func clamp01(x float32) float32 { return min(max(x, 0), 1) }

// rand is the hash of the update program.
func rand(x, y float32) float32 {
	t := 12.9898*x + 78.233*y
	return fract32(float32(math.Sin(float64(t))) * (4375.85453 + t))
}

// quadVertex is the vertex stage shared by screen and update.
func quadVertex(attr [4]float32) ([4]float32, gpucore.Varyings) {
	x, y := attr[0], attr[1]
	return [4]float32{2*x - 1, 1 - 2*y, 0, 1}, gpucore.Varyings{x, y}
}

type drawKernel struct {
	particles, wind, ramp gpucore.Slot
	windMin, windMax, res gpucore.Slot
}

func newDrawKernel(p *gpucore.Program) (gpucore.Kernel, error) {
	s, err := slots(p, "u_particles", "u_wind", "u_color_ramp", "u_wind_min", "u_wind_max", "u_particles_res")
	if err != nil {
		return nil, err
	}
	return &drawKernel{particles: s[0], wind: s[1], ramp: s[2], windMin: s[3], windMax: s[4], res: s[5]}, nil
}

func (k *drawKernel) Vertex(ctx *gpucore.ShadingContext, attr [4]float32) ([4]float32, gpucore.Varyings) {
	i := int(attr[0])
	res := int(ctx.Float(k.res))
	if res < 1 {
		res = 1
	}
	c := ctx.Texture(k.particles).Load(i%res, i/res)
	x, y := codec.Decode(c[0], c[1], c[2], c[3])
	return [4]float32{2*x - 1, 1 - 2*y, 0, 1}, gpucore.Varyings{x, y}
}

func (k *drawKernel) Fragment(ctx *gpucore.ShadingContext, in gpucore.Varyings) ([4]float32, bool) {
	_, _, speedT := windSpeed(ctx, k.wind, k.windMin, k.windMax, in[0], in[1])
	index := min(floor32(speedT*255), 255)
	row := floor32(index / 16)
	col := index - 16*row
	return ctx.Texture(k.ramp).Sample((col+0.5)/16, (row+0.5)/16), true
}

type screenKernel struct {
	screen, opacity gpucore.Slot
}

func newScreenKernel(p *gpucore.Program) (gpucore.Kernel, error) {
	s, err := slots(p, "u_screen", "u_opacity")
	if err != nil {
		return nil, err
	}
	return &screenKernel{screen: s[0], opacity: s[1]}, nil
}

func (k *screenKernel) Vertex(_ *gpucore.ShadingContext, attr [4]float32) ([4]float32, gpucore.Varyings) {
	return quadVertex(attr)
}

func (k *screenKernel) Fragment(ctx *gpucore.ShadingContext, in gpucore.Varyings) ([4]float32, bool) {
	c := ctx.Texture(k.screen).Sample(in[0], in[1])
	op := ctx.Float(k.opacity)
	for i := range c {
		c[i] = floor32(255*c[i]*op) / 255
	}
	return c, true
}

type updateKernel struct {
	particles, wind                    gpucore.Slot
	windRes, windMin, windMax          gpucore.Slot
	seed, speed, dropRate, dropRateBmp gpucore.Slot
}

func newUpdateKernel(p *gpucore.Program) (gpucore.Kernel, error) {
	s, err := slots(p, "u_particles", "u_wind", "u_wind_res", "u_wind_min", "u_wind_max",
		"u_rand_seed", "u_speed_factor", "u_drop_rate", "u_drop_rate_bump")
	if err != nil {
		return nil, err
	}
	return &updateKernel{
		particles: s[0], wind: s[1],
		windRes: s[2], windMin: s[3], windMax: s[4],
		seed: s[5], speed: s[6], dropRate: s[7], dropRateBmp: s[8],
	}, nil
}

func (k *updateKernel) Vertex(_ *gpucore.ShadingContext, attr [4]float32) ([4]float32, gpucore.Varyings) {
	return quadVertex(attr)
}

func (k *updateKernel) Fragment(ctx *gpucore.ShadingContext, in gpucore.Varyings) ([4]float32, bool) {
	tx, ty := in[0], in[1]
	color := ctx.Texture(k.particles).Sample(tx, ty)
	x, y := codec.Decode(color[0], color[1], color[2], color[3])

	u, v, speedT := windSpeed(ctx, k.wind, k.windMin, k.windMax, x, y)
	resX, resY := ctx.Vec2(k.windRes)
	speed := ctx.Float(k.speed)
	ox := u / resX * speed
	oy := -v / resY * speed

	seed := ctx.Float(k.seed)
	sx, sy := (x+tx)*seed, (y+ty)*seed
	dropRate := clamp01(ctx.Float(k.dropRate) + speedT*ctx.Float(k.dropRateBmp))

	var nx, ny float32
	switch {
	case rand(sx, sy) >= 1-dropRate:
		nx, ny = rand(sx+1.3, sy+1.3), rand(sx+2.1, sy+2.1)
	case ox == 0 && oy == 0:
		return color, true
	default:
		nx, ny = fract32(1+x+ox), fract32(1+y+oy)
	}
	r, g, b, a := codec.Encode(nx, ny)
	return [4]float32{r, g, b, a}, true
}
