// Package codec implements the 8-bit channel encodings shared by the
// particle state textures and the vector field texture.
//
// A particle position (x, y) in [0, 1)² is split over the four channels of
// one RGBA8 texel: R and G hold the coarse part, B and A the fine part.
//
//	x = R + B/255
//	y = G + A/255
//
// with channels normalized to [0, 1]. A field texel stores velocity in R
// (u) and G (v), affinely mapped onto the field bounds.
//
// The functions here are the reference for the WGSL programs and the
// software kernels; all arithmetic is float32 to match the GPU.
package codec

import "math"

// Bounds is the velocity range a field texture maps onto.
type Bounds struct {
	UMin, UMax float32
	VMin, VMax float32
}

// Decode returns the position held by a normalized texel.
func Decode(r, g, b, a float32) (x, y float32) {
	return r + b/255, g + a/255
}

// Encode returns the normalized texel for a position. The coarse channels
// hold floor(p·255)/255 and the fine channels fract(p·255).
func Encode(x, y float32) (r, g, b, a float32) {
	r, b = split(x)
	g, a = split(y)
	return r, g, b, a
}

func split(p float32) (coarse, fine float32) {
	s := p * 255
	f := float32(math.Floor(float64(s)))
	return f / 255, s - f
}

// EncodePosition quantizes a position to texel bytes. Each channel rounds
// to the nearest byte.
func EncodePosition(x, y float32) [4]uint8 {
	r, g, b, a := Encode(x, y)
	return [4]uint8{Quantize(r), Quantize(g), Quantize(b), Quantize(a)}
}

// DecodePosition returns the position held by texel bytes.
func DecodePosition(t [4]uint8) (x, y float32) {
	return Decode(Normalize(t[0]), Normalize(t[1]), Normalize(t[2]), Normalize(t[3]))
}

// Velocity maps normalized R and G onto the bounds:
// mix((UMin, VMin), (UMax, VMax), (r, g)).
func Velocity(r, g float32, b Bounds) (u, v float32) {
	return mix(b.UMin, b.UMax, r), mix(b.VMin, b.VMax, g)
}

// DecodeVelocity returns the velocity held by field texel bytes. B and A
// are ignored.
func DecodeVelocity(t [4]uint8, b Bounds) (u, v float32) {
	return Velocity(Normalize(t[0]), Normalize(t[1]), b)
}

// SpeedT returns |(u, v)| / |(maxU, maxV)|, or 0 when the maximum is zero.
func SpeedT(u, v, maxU, maxV float32) float32 {
	m := Length(maxU, maxV)
	if m == 0 {
		return 0
	}
	return Length(u, v) / m
}

// Length returns the Euclidean length of (x, y).
func Length(x, y float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y)))
}

// Normalize converts a byte channel to [0, 1].
func Normalize(c uint8) float32 {
	return float32(c) / 255
}

// Quantize converts a normalized channel to the nearest byte, clamping to
// [0, 255].
func Quantize(c float32) uint8 {
	switch {
	case c <= 0:
		return 0
	case c >= 1:
		return 255
	}
	return uint8(c*255 + 0.5)
}

func mix(a, b, t float32) float32 {
	return a*(1-t) + b*t
}
