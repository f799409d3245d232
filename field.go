package windgl

import (
	"github.com/gogpu/windgl/codec"
	"github.com/gogpu/windgl/gpucore"
)

// VectorField is a 2D velocity field stored in an image. The R channel maps
// linearly onto [UMin, UMax] (eastward) and G onto [VMin, VMax] (northward);
// B and A are ignored.
type VectorField struct {
	// Image holds the encoded velocities. Row 0 is the northern edge.
	Image gpucore.TextureSource

	// Width and Height are the native field resolution. They set the
	// particle step size and need not match the image size.
	Width  int
	Height int

	UMin, UMax float32
	VMin, VMax float32
}

// Bounds returns the velocity range of the field.
func (f VectorField) Bounds() codec.Bounds {
	return codec.Bounds{UMin: f.UMin, UMax: f.UMax, VMin: f.VMin, VMax: f.VMax}
}
