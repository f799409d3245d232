package codec

import (
	"math"
	"math/rand/v2"
	"testing"
)

const positionTolerance = 1.0 / (255 * 255)

func TestPositionRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 10000 {
		x, y := rng.Float32(), rng.Float32()
		gx, gy := DecodePosition(EncodePosition(x, y))
		if d := math.Abs(float64(gx - x)); d > positionTolerance {
			t.Fatalf("#%d: x=%v decoded %v (|d|=%g)", i, x, gx, d)
		}
		if d := math.Abs(float64(gy - y)); d > positionTolerance {
			t.Fatalf("#%d: y=%v decoded %v (|d|=%g)", i, y, gy, d)
		}
	}
}

func TestEncodeChannels(t *testing.T) {
	tests := []struct {
		name string
		x, y float32
		want [4]uint8
	}{
		{"origin", 0, 0, [4]uint8{0, 0, 0, 0}},
		{"half", 0.5, 0.5, [4]uint8{127, 127, 128, 128}},
		{"quarter", 0.25, 0.75, [4]uint8{63, 191, 191, 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodePosition(tt.x, tt.y); got != tt.want {
				t.Errorf("EncodePosition(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestDecodePositionBytes(t *testing.T) {
	x, y := DecodePosition([4]uint8{255, 0, 255, 0})
	if want := 1 + 1.0/255; math.Abs(float64(x)-want) > 1e-6 || y != 0 {
		t.Errorf("DecodePosition = (%v, %v), want (%v, 0)", x, y, want)
	}
}

func TestDecodeVelocityAffine(t *testing.T) {
	b := Bounds{UMin: -20, UMax: 30, VMin: -10, VMax: 10}
	tests := []struct {
		name string
		r, g uint8
		u, v float32
	}{
		{"min", 0, 0, -20, -10},
		{"max", 255, 255, 30, 10},
		{"mixed", 255, 0, 30, -10},
		{"mid", 51, 204, -10, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, v := DecodeVelocity([4]uint8{tt.r, tt.g, 99, 7}, b)
			if math.Abs(float64(u-tt.u)) > 1e-4 || math.Abs(float64(v-tt.v)) > 1e-4 {
				t.Errorf("DecodeVelocity = (%v, %v), want (%v, %v)", u, v, tt.u, tt.v)
			}
		})
	}
}

func TestSpeedT(t *testing.T) {
	tests := []struct {
		name             string
		u, v, maxU, maxV float32
		want             float32
	}{
		{"zero max", 3, 4, 0, 0, 0},
		{"at max", 3, 4, 3, 4, 1},
		{"half", 3, 4, 6, 8, 0.5},
		{"negative components", -3, -4, 6, 8, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpeedT(tt.u, tt.v, tt.maxU, tt.maxV); math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("SpeedT = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-1, 0}, {0, 0}, {0.5, 128}, {1, 255}, {2, 255}, {1.0 / 255, 1},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
