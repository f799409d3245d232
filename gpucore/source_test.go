package gpucore

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestTextureSourceRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.SetGray(1, 0, color.Gray{Y: 200})

	sub := image.NewNRGBA(image.Rect(0, 0, 4, 4)).SubImage(image.Rect(1, 1, 3, 2)).(*image.NRGBA)
	sub.SetNRGBA(2, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	tests := []struct {
		name   string
		src    TextureSource
		w, h   int
		want   []byte
		wantEr error
	}{
		{"raw", FromPixels([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, 2, 1), 2, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8}, nil},
		{"empty", Empty(1, 2), 1, 2, make([]byte, 8), nil},
		{"gray image", FromImage(gray), 2, 1, []byte{0, 0, 0, 255, 200, 200, 200, 255}, nil},
		{"sub image", FromImage(sub), 2, 1, []byte{0, 0, 0, 0, 1, 2, 3, 4}, nil},
		{"short", FromPixels([]byte{1, 2, 3}, 1, 1), 0, 0, nil, ErrShortPixels},
		{"zero size", Empty(0, 4), 0, 0, nil, ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, w, h, err := tt.src.RGBA()
			if tt.wantEr != nil {
				if !errors.Is(err, tt.wantEr) {
					t.Fatalf("err = %v, want %v", err, tt.wantEr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RGBA: %v", err)
			}
			if w != tt.w || h != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
			if string(px) != string(tt.want) {
				t.Errorf("pixels = %v, want %v", px, tt.want)
			}
		})
	}
}
