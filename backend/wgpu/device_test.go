//go:build !nogpu

package wgpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/windgl/gpucore"
)

func TestAlignedPitch(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{4, 256},
		{256, 256},
		{260, 512},
		{1024 * 4, 4096},
	}
	for _, tt := range tests {
		if got := alignedPitch(tt.in); got != tt.want {
			t.Errorf("alignedPitch(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestUnpadRows(t *testing.T) {
	raw := []byte{
		1, 2, 3, 0, 0,
		4, 5, 6, 0, 0,
	}
	got := unpadRows(raw, 3, 5, 2)
	want := []byte{1, 2, 3, 4, 5, 6}
	if !bytes.Equal(got, want) {
		t.Errorf("unpadRows() = %v, want %v", got, want)
	}

	tight := []byte{1, 2, 3, 4}
	if got := unpadRows(tight, 2, 2, 2); !bytes.Equal(got, tight) {
		t.Errorf("unpadRows() tight = %v, want %v", got, tight)
	}
}

func TestBlendFactor(t *testing.T) {
	tests := []struct {
		in   gpucore.BlendFactor
		want gputypes.BlendFactor
	}{
		{gpucore.BlendZero, gputypes.BlendFactorZero},
		{gpucore.BlendOne, gputypes.BlendFactorOne},
		{gpucore.BlendSrcAlpha, gputypes.BlendFactorSrcAlpha},
		{gpucore.BlendOneMinusSrcAlpha, gputypes.BlendFactorOneMinusSrcAlpha},
		{gpucore.BlendOneMinusConstantAlpha, gputypes.BlendFactorOne},
	}
	for _, tt := range tests {
		if got := blendFactor(tt.in); got != tt.want {
			t.Errorf("blendFactor(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVertexFormat(t *testing.T) {
	for n, want := range map[int]gputypes.VertexFormat{
		1: gputypes.VertexFormatFloat32,
		2: gputypes.VertexFormatFloat32x2,
		4: gputypes.VertexFormatFloat32x4,
	} {
		got, err := vertexFormat(n)
		if err != nil || got != want {
			t.Errorf("vertexFormat(%d) = %v, %v; want %v", n, got, err, want)
		}
	}
	for _, n := range []int{0, 5} {
		if _, err := vertexFormat(n); err == nil {
			t.Errorf("vertexFormat(%d) succeeded", n)
		}
	}
}

func TestSamplerTexture(t *testing.T) {
	if got := samplerTexture("u_wind_sampler"); got != "u_wind" {
		t.Errorf("samplerTexture() = %q, want u_wind", got)
	}
	if got := samplerTexture("u_wind"); got != "u_wind" {
		t.Errorf("samplerTexture() = %q, want u_wind", got)
	}
}

func TestClampViewport(t *testing.T) {
	tests := []struct {
		name string
		in   gpucore.Viewport
		want gpucore.Viewport
		err  bool
	}{
		{"empty covers target", gpucore.Viewport{}, gpucore.Viewport{Width: 64, Height: 32}, false},
		{"inside", gpucore.Viewport{X: 4, Y: 2, Width: 8, Height: 8}, gpucore.Viewport{X: 4, Y: 2, Width: 8, Height: 8}, false},
		{"clipped", gpucore.Viewport{X: -4, Y: 0, Width: 128, Height: 16}, gpucore.Viewport{Width: 64, Height: 16}, false},
		{"outside", gpucore.Viewport{X: 100, Y: 0, Width: 8, Height: 8}, gpucore.Viewport{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := clampViewport(tt.in, 64, 32)
			if tt.err {
				if !errors.Is(err, ErrViewport) {
					t.Fatalf("clampViewport() error = %v, want ErrViewport", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("clampViewport() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("clampViewport() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLayoutEntries(t *testing.T) {
	bindings := []gpucore.Binding{
		{Binding: 0, Kind: gpucore.SlotTexture, Name: "u_wind", Visibility: gputypes.ShaderStageFragment},
		{Binding: 1, Kind: gpucore.SlotSampler, Name: "u_wind_sampler", Visibility: gputypes.ShaderStageFragment},
		{Binding: 6, Kind: gpucore.SlotUniformBlock, Name: "params", Visibility: gputypes.ShaderStageVertex},
	}
	entries := layoutEntries(bindings)
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Texture == nil || entries[1].Sampler == nil || entries[2].Buffer == nil {
		t.Errorf("entries = %+v, want texture, sampler, buffer", entries)
	}
	if entries[2].Binding != 6 || entries[2].Visibility != gputypes.ShaderStageVertex {
		t.Errorf("uniform entry = %+v", entries[2])
	}
}

func TestTextureRoundTrip(t *testing.T) {
	d, err := New(8, 8)
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	defer d.Close()

	pix := make([]byte, 4*4*4)
	for i := range pix {
		pix[i] = byte(i * 3)
	}
	id, err := d.CreateTexture(gpucore.TextureDescriptor{Label: "roundtrip", Source: gpucore.FromPixels(pix, 4, 4)})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	got, err := d.ReadPixels(id)
	if err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	if !bytes.Equal(got, pix) {
		t.Errorf("ReadPixels() differs from upload")
	}

	d.Clear(gputypes.Color{R: 1, A: 1})
	surface, err := d.ReadSurface()
	if err != nil {
		t.Fatalf("ReadSurface() error = %v", err)
	}
	if surface[0] != 255 || surface[1] != 0 || surface[3] != 255 {
		t.Errorf("surface[0:4] = %v, want opaque red", surface[:4])
	}
}

func TestClosedDevice(t *testing.T) {
	d, err := New(4, 4)
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := d.CreateTexture(gpucore.TextureDescriptor{Source: gpucore.Empty(1, 1)}); !errors.Is(err, gpucore.ErrClosed) {
		t.Errorf("CreateTexture() after Close error = %v, want ErrClosed", err)
	}
}
