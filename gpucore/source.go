package gpucore

import (
	"image"

	"golang.org/x/image/draw"
)

// TextureSource is the content of a texture upload: either raw RGBA bytes
// with explicit dimensions, or a decoded image whose intrinsic bounds are
// used instead.
type TextureSource struct {
	Pixels []byte
	Width  int
	Height int

	// Image, when non-nil, takes precedence over Pixels, Width and Height.
	Image image.Image
}

// FromPixels returns a raw source of width x height RGBA texels.
func FromPixels(pixels []byte, width, height int) TextureSource {
	return TextureSource{Pixels: pixels, Width: width, Height: height}
}

// FromImage returns a source backed by a decoded image.
func FromImage(img image.Image) TextureSource {
	return TextureSource{Image: img}
}

// Empty returns a transparent raw source of the given size.
func Empty(width, height int) TextureSource {
	if width <= 0 || height <= 0 {
		return TextureSource{Width: width, Height: height}
	}
	return TextureSource{Pixels: make([]byte, width*height*4), Width: width, Height: height}
}

// RGBA resolves the source to tightly packed, non-premultiplied RGBA bytes.
// Raw pixels are returned without copying.
func (s TextureSource) RGBA() (pixels []byte, width, height int, err error) {
	if s.Image != nil {
		return imagePixels(s.Image)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, 0, 0, ErrInvalidDimensions
	}
	if len(s.Pixels) < s.Width*s.Height*4 {
		return nil, 0, 0, ErrShortPixels
	}
	return s.Pixels[:s.Width*s.Height*4], s.Width, s.Height, nil
}

// imagePixels converts an image to tight NRGBA bytes. Texture uploads do not
// premultiply, so channel values survive unchanged for data textures.
func imagePixels(img image.Image) ([]byte, int, int, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, 0, 0, ErrInvalidDimensions
	}
	if n, ok := img.(*image.NRGBA); ok && n.Stride == b.Dx()*4 && n.Rect.Min == (image.Point{}) {
		return n.Pix[:b.Dx()*b.Dy()*4], b.Dx(), b.Dy(), nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix, b.Dx(), b.Dy(), nil
}
