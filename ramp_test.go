package windgl

import (
	"bytes"
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"f00", color.NRGBA{255, 0, 0, 255}, false},
		{"#0f08", color.NRGBA{0, 255, 0, 136}, false},
		{"#3288bd", color.NRGBA{0x32, 0x88, 0xbd, 255}, false},
		{"#3288bd80", color.NRGBA{0x32, 0x88, 0xbd, 0x80}, false},
		{"", color.NRGBA{}, true},
		{"#12345", color.NRGBA{}, true},
		{"#ggg", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMustHexPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustHex did not panic")
		}
	}()
	MustHex("nope")
}

func TestBuildColorRampGradient(t *testing.T) {
	pix, err := BuildColorRamp([]ColorStop{
		{0, color.NRGBA{0, 0, 0, 255}},
		{1, color.NRGBA{255, 255, 255, 255}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pix) != RampSize*RampSize*4 {
		t.Fatalf("len = %d, want %d", len(pix), RampSize*RampSize*4)
	}
	for i := 0; i < RampSize*RampSize; i++ {
		want := uint8(math.Round(255 * (float64(i) + 0.5) / 256))
		if got := pix[i*4]; got != want {
			t.Fatalf("color %d red = %d, want %d", i, got, want)
		}
		if pix[i*4+3] != 255 {
			t.Fatalf("color %d alpha = %d", i, pix[i*4+3])
		}
	}
	if pix[0] != 0 || pix[255*4] != 255 {
		t.Errorf("ends = %d, %d, want 0, 255", pix[0], pix[255*4])
	}
}

func TestBuildColorRampClampsEnds(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}
	pix, err := BuildColorRamp([]ColorStop{{0.25, red}, {0.75, blue}})
	if err != nil {
		t.Fatal(err)
	}
	first := color.NRGBA{pix[0], pix[1], pix[2], pix[3]}
	last := color.NRGBA{pix[255*4], pix[255*4+1], pix[255*4+2], pix[255*4+3]}
	if first != red || last != blue {
		t.Errorf("ends = %v, %v, want %v, %v", first, last, red, blue)
	}
}

func TestBuildColorRampSortsStops(t *testing.T) {
	stops := DefaultColorRamp()
	reversed := make([]ColorStop, len(stops))
	for i, s := range stops {
		reversed[len(stops)-1-i] = s
	}
	a, err := BuildColorRamp(stops)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildColorRamp(reversed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("stop order changed the ramp")
	}
}

func TestBuildColorRampInvalid(t *testing.T) {
	white := MustHex("#fff")
	tests := []struct {
		name  string
		stops []ColorStop
	}{
		{"empty", nil},
		{"single", []ColorStop{{0.5, white}}},
		{"negative", []ColorStop{{-0.1, white}, {1, white}}},
		{"above one", []ColorStop{{0, white}, {1.5, white}}},
		{"nan", []ColorStop{{0, white}, {math.NaN(), white}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildColorRamp(tt.stops); !errors.Is(err, ErrInvalidColorRamp) {
				t.Errorf("error = %v, want ErrInvalidColorRamp", err)
			}
		})
	}
}
