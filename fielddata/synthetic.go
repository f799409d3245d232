package fielddata

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/windgl"
	"github.com/gogpu/windgl/codec"
)

// VelocityFunc returns the velocity at normalized position (x, y), with y
// growing southward.
type VelocityFunc func(x, y float64) (u, v float64)

// Synthesize samples fn on a width×height grid and encodes it with the
// given velocity range. Velocities outside the range are clamped.
func Synthesize(width, height int, b codec.Bounds, fn VelocityFunc) (windgl.VectorField, *image.NRGBA) {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	norm := func(v float64, lo, hi float32) uint8 {
		if hi == lo {
			return 0
		}
		return codec.Quantize(float32((v - float64(lo)) / float64(hi-lo)))
	}
	for y := range height {
		for x := range width {
			u, v := fn((float64(x)+0.5)/float64(width), (float64(y)+0.5)/float64(height))
			img.SetNRGBA(x, y, color.NRGBA{
				R: norm(u, b.UMin, b.UMax),
				G: norm(v, b.VMin, b.VMax),
				A: 255,
			})
		}
	}
	m := Meta{Width: width, Height: height, UMin: b.UMin, UMax: b.UMax, VMin: b.VMin, VMax: b.VMax}
	return Field(m, img), img
}

// Vortex returns a single counter-clockwise vortex centered in the field
// with peak speed maxSpeed at a quarter of the field width from the center.
func Vortex(width, height int, maxSpeed float32) windgl.VectorField {
	b := codec.Bounds{UMin: -maxSpeed, UMax: maxSpeed, VMin: -maxSpeed, VMax: maxSpeed}
	f, _ := Synthesize(width, height, b, func(x, y float64) (float64, float64) {
		dx, dy := x-0.5, 0.5-y
		r := math.Hypot(dx, dy)
		if r == 0 {
			return 0, 0
		}
		// Rankine profile: solid body inside the core, 1/r outside.
		const core = 0.25
		s := r / core
		if r > core {
			s = core / r
		}
		s *= float64(maxSpeed)
		return -dy / r * s, dx / r * s
	})
	return f
}
