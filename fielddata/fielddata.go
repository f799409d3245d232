// Package fielddata loads vector fields stored as a JSON metadata file next
// to an encoded image, the layout produced by common GRIB-to-PNG wind
// converters:
//
//	{
//	  "source": "http://nomads.ncep.noaa.gov",
//	  "date": "2016-11-20T00:00Z",
//	  "width": 360,
//	  "height": 180,
//	  "uMin": -21.32, "uMax": 26.8,
//	  "vMin": -21.57, "vMax": 21.42
//	}
//
// The image sits beside the metadata with the same base name, or at the
// path named by the optional "image" key. PNG, WebP, BMP and TIFF images
// are supported.
package fielddata

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // field imagery
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/windgl"
	"github.com/gogpu/windgl/gpucore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ImageExtensions are tried in order when the metadata names no image.
var ImageExtensions = []string{".png", ".webp", ".bmp", ".tiff", ".tif"}

var (
	// ErrInvalidMeta is returned for metadata with an inverted range or a
	// negative size.
	ErrInvalidMeta = errors.New("fielddata: invalid metadata")

	// ErrNoImage is returned when no image file accompanies the metadata.
	ErrNoImage = errors.New("fielddata: no field image found")
)

// Meta describes a field image.
type Meta struct {
	Source string  `json:"source,omitempty"`
	Date   string  `json:"date,omitempty"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	UMin   float32 `json:"uMin"`
	UMax   float32 `json:"uMax"`
	VMin   float32 `json:"vMin"`
	VMax   float32 `json:"vMax"`

	// Image is the image path, relative to the metadata file.
	Image string `json:"image,omitempty"`
}

// Validate checks the velocity ranges and the size.
func (m Meta) Validate() error {
	if m.Width < 0 || m.Height < 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidMeta, m.Width, m.Height)
	}
	if m.UMin > m.UMax || m.VMin > m.VMax {
		return fmt.Errorf("%w: range u [%g, %g] v [%g, %g]", ErrInvalidMeta, m.UMin, m.UMax, m.VMin, m.VMax)
	}
	return nil
}

// ReadMeta decodes metadata from r.
func ReadMeta(r io.Reader) (Meta, error) {
	var m Meta
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Meta{}, fmt.Errorf("fielddata: decode metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// WriteMeta encodes m to w.
func WriteMeta(w io.Writer, m Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("fielddata: encode metadata: %w", err)
	}
	return nil
}

// DecodeImage decodes a field image in any supported format.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("fielddata: decode image: %w", err)
	}
	return img, format, nil
}

// Field combines metadata and an image into a vector field. A zero
// metadata size falls back to the image size.
func Field(m Meta, img image.Image) windgl.VectorField {
	w, h := m.Width, m.Height
	if w == 0 || h == 0 {
		b := img.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	return windgl.VectorField{
		Image:  gpucore.FromImage(img),
		Width:  w,
		Height: h,
		UMin:   m.UMin, UMax: m.UMax,
		VMin: m.VMin, VMax: m.VMax,
	}
}

// Load reads the metadata at metaPath and its image.
func Load(metaPath string) (windgl.VectorField, Meta, error) {
	f, err := os.Open(metaPath)
	if err != nil {
		return windgl.VectorField{}, Meta{}, fmt.Errorf("fielddata: %w", err)
	}
	defer f.Close()

	m, err := ReadMeta(f)
	if err != nil {
		return windgl.VectorField{}, Meta{}, fmt.Errorf("%s: %w", metaPath, err)
	}

	imgPath, err := ImagePath(metaPath, m)
	if err != nil {
		return windgl.VectorField{}, Meta{}, err
	}
	img, err := loadImage(imgPath)
	if err != nil {
		return windgl.VectorField{}, Meta{}, err
	}
	return Field(m, img), m, nil
}

// ImagePath resolves the image that belongs to the metadata at metaPath.
func ImagePath(metaPath string, m Meta) (string, error) {
	dir := filepath.Dir(metaPath)
	if m.Image != "" {
		if filepath.IsAbs(m.Image) {
			return m.Image, nil
		}
		return filepath.Join(dir, m.Image), nil
	}
	base := strings.TrimSuffix(metaPath, filepath.Ext(metaPath))
	for _, ext := range ImageExtensions {
		p := base + ext
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w for %s", ErrNoImage, metaPath)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fielddata: %w", err)
	}
	defer f.Close()
	img, _, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
