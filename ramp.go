package windgl

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
)

// RampSize is the side of the color ramp texture. The ramp holds
// RampSize*RampSize = 256 colors, row-major.
const RampSize = 16

// ColorStop is one stop of a color ramp.
type ColorStop struct {
	Offset float64
	Color  color.NRGBA
}

// DefaultColorRamp returns the default speed ramp, blue for calm through
// red for the fastest particles.
func DefaultColorRamp() []ColorStop {
	return []ColorStop{
		{0.0, MustHex("#3288bd")},
		{0.1, MustHex("#66c2a5")},
		{0.2, MustHex("#abdda4")},
		{0.3, MustHex("#e6f598")},
		{0.4, MustHex("#fee08b")},
		{0.5, MustHex("#fdae61")},
		{0.6, MustHex("#f46d43")},
		{1.0, MustHex("#d53e4f")},
	}
}

// ParseHex parses "#RGB", "#RGBA", "#RRGGBB" or "#RRGGBBAA"; the leading
// '#' is optional.
func ParseHex(hex string) (color.NRGBA, error) {
	s := hex
	if s != "" && s[0] == '#' {
		s = s[1:]
	}

	digits := func(part string, scale uint8) (uint8, error) {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("windgl: invalid hex color %q", hex)
		}
		return uint8(v) * scale, nil
	}

	var parts []string
	var scale uint8
	switch len(s) {
	case 3, 4:
		scale = 17
		for i := range s {
			parts = append(parts, s[i:i+1])
		}
	case 6, 8:
		scale = 1
		for i := 0; i < len(s); i += 2 {
			parts = append(parts, s[i:i+2])
		}
	default:
		return color.NRGBA{}, fmt.Errorf("windgl: invalid hex color %q", hex)
	}

	c := [4]uint8{3: 255}
	for i, p := range parts {
		v, err := digits(p, scale)
		if err != nil {
			return color.NRGBA{}, err
		}
		c[i] = v
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
}

// MustHex is like ParseHex but panics on malformed input.
func MustHex(hex string) color.NRGBA {
	c, err := ParseHex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// BuildColorRamp renders stops into the 16×16 RGBA ramp texture. Color i
// is the horizontal linear gradient over a 256-pixel line evaluated at
// pixel center i+0.5, interpolated in sRGB. Stops are ordered by offset;
// stops with equal offsets keep their order.
func BuildColorRamp(stops []ColorStop) ([]byte, error) {
	if len(stops) < 2 {
		return nil, ErrInvalidColorRamp
	}
	sorted := append([]ColorStop(nil), stops...)
	for _, s := range sorted {
		if s.Offset < 0 || s.Offset > 1 || math.IsNaN(s.Offset) {
			return nil, ErrInvalidColorRamp
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	const n = RampSize * RampSize
	pix := make([]byte, n*4)
	for i := range n {
		c := gradientAt(sorted, (float64(i)+0.5)/n)
		copy(pix[i*4:], []byte{c.R, c.G, c.B, c.A})
	}
	return pix, nil
}

// gradientAt evaluates sorted stops at t.
func gradientAt(stops []ColorStop, t float64) color.NRGBA {
	if t <= stops[0].Offset {
		return stops[0].Color
	}
	last := stops[len(stops)-1]
	if t >= last.Offset {
		return last.Color
	}
	// First stop strictly past t; the segment is [k-1, k].
	k := sort.Search(len(stops), func(i int) bool { return stops[i].Offset > t })
	a, b := stops[k-1], stops[k]
	f := (t - a.Offset) / (b.Offset - a.Offset)
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return color.NRGBA{
		R: lerp(a.Color.R, b.Color.R),
		G: lerp(a.Color.G, b.Color.G),
		B: lerp(a.Color.B, b.Color.B),
		A: lerp(a.Color.A, b.Color.A),
	}
}
