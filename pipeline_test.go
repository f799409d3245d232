package windgl

import (
	"bytes"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/gogpu/windgl/backend/software"
	"github.com/gogpu/windgl/codec"
	"github.com/gogpu/windgl/gpucore"
)

func newTestPipeline(t *testing.T, w, h, particles int) (*Pipeline, *software.Device) {
	t.Helper()
	dev, err := software.New(w, h)
	if err != nil {
		t.Fatalf("software.New: %v", err)
	}
	p, err := New(dev, WithParticleCount(particles), WithRandSource(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		p.Close()
		dev.Close()
	})
	return p, dev
}

// uniformField returns a size×size field whose every texel encodes (r, g).
func uniformField(size int, r, g uint8, umin, umax, vmin, vmax float32) VectorField {
	pix := make([]byte, size*size*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+3] = r, g, 255
	}
	return VectorField{
		Image:  gpucore.FromPixels(pix, size, size),
		Width:  size,
		Height: size,
		UMin:   umin, UMax: umax,
		VMin: vmin, VMax: vmax,
	}
}

func readParticles(t *testing.T, p *Pipeline, dev *software.Device) []byte {
	t.Helper()
	cur, _ := p.ParticleTextures()
	pix, err := dev.ReadPixels(cur)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	return pix
}

func TestParticleResolution(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{4, 2},
		{5, 3},
		{1000, 32},
		{1024, 32},
		{65536, 256},
		{65537, 257},
	}
	for _, tt := range tests {
		if got := ParticleResolution(tt.n); got != tt.want {
			t.Errorf("ParticleResolution(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestNewNilDevice(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil) error = %v, want ErrNilDevice", err)
	}
}

func TestNewInitialState(t *testing.T) {
	p, dev := newTestPipeline(t, 32, 24, 1000)

	if p.State() != StateReady {
		t.Errorf("State() = %v, want Ready", p.State())
	}
	if got := p.ParticleCount(); got != 1024 {
		t.Errorf("ParticleCount() = %d, want 1024", got)
	}
	if w, h := p.Size(); w != 32 || h != 24 {
		t.Errorf("Size() = %dx%d, want 32x24", w, h)
	}
	cur, next := p.ParticleTextures()
	a, _ := dev.ReadPixels(cur)
	b, _ := dev.ReadPixels(next)
	if !bytes.Equal(a, b) {
		t.Error("particle textures differ after creation")
	}
	bg, screen := p.TrailTextures()
	for _, id := range []gpucore.TextureID{bg, screen} {
		w, h, err := dev.TextureSize(id)
		if err != nil || w != 32 || h != 24 {
			t.Errorf("trail texture %d: %dx%d, %v", id, w, h, err)
		}
	}
}

func TestAdvanceWithoutField(t *testing.T) {
	p, dev := newTestPipeline(t, 16, 16, 16)
	before := readParticles(t, p, dev)

	if err := p.Advance(DefaultTunables()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if p.Ticks() != 0 {
		t.Errorf("Ticks() = %d, want 0", p.Ticks())
	}
	if dev.Stats().Draws != 0 {
		t.Errorf("Draws = %d, want 0", dev.Stats().Draws)
	}
	if !bytes.Equal(before, readParticles(t, p, dev)) {
		t.Error("particles changed without a field")
	}
}

func TestAdvanceSwapsBuffers(t *testing.T) {
	p, _ := newTestPipeline(t, 16, 16, 16)
	if err := p.SetField(uniformField(4, 128, 128, -10, 10, -10, 10)); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	cur, next := p.ParticleTextures()
	bg, screen := p.TrailTextures()
	if err := p.Advance(DefaultTunables()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	cur2, next2 := p.ParticleTextures()
	bg2, screen2 := p.TrailTextures()
	if cur2 != next || next2 != cur {
		t.Errorf("particles (%d, %d) -> (%d, %d), want swapped", cur, next, cur2, next2)
	}
	if bg2 != screen || screen2 != bg {
		t.Errorf("trail (%d, %d) -> (%d, %d), want swapped", bg, screen, bg2, screen2)
	}
	if p.Ticks() != 1 {
		t.Errorf("Ticks() = %d, want 1", p.Ticks())
	}
}

func TestZeroFieldIsStable(t *testing.T) {
	p, dev := newTestPipeline(t, 16, 16, 100)
	if err := p.SetField(uniformField(8, 0, 0, 0, 0, 0, 0)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	before := readParticles(t, p, dev)

	tun := DefaultTunables()
	tun.DropRate, tun.DropRateBump = 0, 0
	for i := range 5 {
		if err := p.Advance(tun); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}
	if !bytes.Equal(before, readParticles(t, p, dev)) {
		t.Error("particles moved in a zero field")
	}
}

func TestStationaryRoundTrip(t *testing.T) {
	bump := DefaultTunables().DropRateBump
	tests := []struct {
		name       string
		r, g       uint8
		bound      float32
		tun        Tunables
		ticks      int
		minRespawn int
		maxRespawn int
	}{
		{"wide bounds", 200, 30, 5, Tunables{FadeOpacity: 0.96}, 1, 0, 0},
		{"unit bounds near zero", 128, 128, 1, Tunables{}, 10, 0, 0},
		{"unit bounds full speed no bump", 255, 255, 1, Tunables{}, 10, 0, 0},
		// speed_t is 1 at the corner texel, so the default bump alone gives
		// each particle a 1% respawn chance per tick: 2000 trials, mean 20.
		{"unit bounds full speed default bump", 255, 255, 1, Tunables{DropRateBump: bump}, 500, 1, 60},
		{"unit bounds full speed full bump", 255, 255, 1, Tunables{DropRateBump: 1}, 3, 12, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dev := newTestPipeline(t, 8, 8, 4)
			if p.ParticleResolution() != 2 {
				t.Fatalf("ParticleResolution() = %d, want 2", p.ParticleResolution())
			}
			if err := p.SetField(uniformField(4, tt.r, tt.g, -tt.bound, tt.bound, -tt.bound, tt.bound)); err != nil {
				t.Fatalf("SetField: %v", err)
			}

			respawns := 0
			before := readParticles(t, p, dev)
			for i := range tt.ticks {
				if err := p.Advance(tt.tun); err != nil {
					t.Fatalf("Advance %d: %v", i, err)
				}
				after := readParticles(t, p, dev)
				for j := 0; j < len(after); j += 4 {
					if !bytes.Equal(before[j:j+4], after[j:j+4]) {
						respawns++
					}
				}
				before = after
			}
			if respawns < tt.minRespawn || respawns > tt.maxRespawn {
				t.Errorf("respawns = %d over %d ticks, want [%d, %d]", respawns, tt.ticks, tt.minRespawn, tt.maxRespawn)
			}
		})
	}
}

func TestAdvectionMovesParticles(t *testing.T) {
	p, dev := newTestPipeline(t, 16, 16, 64)
	// u = umax everywhere, v = 0.
	if err := p.SetField(uniformField(4, 255, 0, 0, 4, 0, 0)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	before := readParticles(t, p, dev)
	if err := p.Advance(Tunables{FadeOpacity: 0.96, SpeedFactor: 0.25}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	after := readParticles(t, p, dev)

	// offset.x = 4 / 4 * 0.25 = 0.25 of the field per tick.
	for i := 0; i < len(before); i += 4 {
		x0, y0 := codec.DecodePosition([4]uint8(before[i : i+4]))
		x1, y1 := codec.DecodePosition([4]uint8(after[i : i+4]))
		want := float32(math.Mod(float64(x0)+0.25, 1))
		dx := math.Abs(float64(x1 - want))
		if dx > 1e-3 && math.Abs(dx-1) > 1e-3 {
			t.Fatalf("particle %d: x %v -> %v, want %v", i/4, x0, x1, want)
		}
		if math.Abs(float64(y1-y0)) > 1e-4 {
			t.Fatalf("particle %d: y %v -> %v, want unchanged", i/4, y0, y1)
		}
	}
}

func TestFullDropRateDecorrelates(t *testing.T) {
	p, dev := newTestPipeline(t, 16, 16, 4096)
	if err := p.SetField(uniformField(4, 128, 128, -1, 1, -1, 1)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	before := readParticles(t, p, dev)
	if err := p.Advance(Tunables{FadeOpacity: 0.96, SpeedFactor: 0.25, DropRate: 1}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	after := readParticles(t, p, dev)

	n := len(before) / 4
	xs0, xs1 := make([]float64, n), make([]float64, n)
	ys0, ys1 := make([]float64, n), make([]float64, n)
	for i := range n {
		x, y := codec.DecodePosition([4]uint8(before[i*4 : i*4+4]))
		xs0[i], ys0[i] = float64(x), float64(y)
		x, y = codec.DecodePosition([4]uint8(after[i*4 : i*4+4]))
		xs1[i], ys1[i] = float64(x), float64(y)
	}
	if c := stat.Correlation(xs0, xs1, nil); math.Abs(c) > 0.15 {
		t.Errorf("x correlation after full respawn = %.3f", c)
	}
	if c := stat.Correlation(ys0, ys1, nil); math.Abs(c) > 0.15 {
		t.Errorf("y correlation after full respawn = %.3f", c)
	}
	if m := stat.Mean(xs1, nil); m < 0.4 || m > 0.6 {
		t.Errorf("mean x after respawn = %.3f, want about 0.5", m)
	}
}

func TestResize(t *testing.T) {
	p, dev := newTestPipeline(t, 100, 100, 16)
	if err := p.SetField(uniformField(4, 255, 255, -1, 1, -1, 1)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := p.Advance(DefaultTunables()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	particles := readParticles(t, p, dev)

	if err := p.Resize(50, 50); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := dev.SurfaceSize(); w != 50 || h != 50 {
		t.Errorf("surface %dx%d, want 50x50", w, h)
	}
	bg, screen := p.TrailTextures()
	for _, id := range []gpucore.TextureID{bg, screen} {
		w, h, err := dev.TextureSize(id)
		if err != nil || w != 50 || h != 50 {
			t.Fatalf("trail %d: %dx%d, %v", id, w, h, err)
		}
		pix, _ := dev.ReadPixels(id)
		if !bytes.Equal(pix, make([]byte, 50*50*4)) {
			t.Errorf("trail %d not transparent after resize", id)
		}
	}
	if !bytes.Equal(particles, readParticles(t, p, dev)) {
		t.Error("resize changed the particle state")
	}

	for _, size := range [][2]int{{0, 10}, {10, -1}} {
		if err := p.Resize(size[0], size[1]); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Resize(%d, %d) = %v, want ErrInvalidSize", size[0], size[1], err)
		}
	}
}

func TestSetParticleCount(t *testing.T) {
	p, dev := newTestPipeline(t, 16, 16, 16)
	cur, next := p.ParticleTextures()

	if err := p.SetParticleCount(16); err != nil {
		t.Fatalf("SetParticleCount(16): %v", err)
	}
	if c, n := p.ParticleTextures(); c != cur || n != next {
		t.Error("same count recreated the particle textures")
	}

	if err := p.SetParticleCount(17); err != nil {
		t.Fatalf("SetParticleCount(17): %v", err)
	}
	if p.ParticleCount() != 25 {
		t.Errorf("ParticleCount() = %d, want 25", p.ParticleCount())
	}
	if _, _, err := dev.TextureSize(cur); err == nil {
		t.Error("old particle texture still alive")
	}
	if err := p.SetParticleCount(0); !errors.Is(err, ErrInvalidParticleCount) {
		t.Errorf("SetParticleCount(0) = %v, want ErrInvalidParticleCount", err)
	}
}

func TestSetColorRampInvalid(t *testing.T) {
	p, _ := newTestPipeline(t, 8, 8, 4)
	if err := p.SetColorRamp([]ColorStop{{0, MustHex("#fff")}}); !errors.Is(err, ErrInvalidColorRamp) {
		t.Errorf("SetColorRamp(one stop) = %v, want ErrInvalidColorRamp", err)
	}
}

func TestPresentDrawsParticles(t *testing.T) {
	p, dev := newTestPipeline(t, 32, 32, 256)
	if err := p.SetField(uniformField(4, 255, 128, -5, 5, -5, 5)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := p.Advance(DefaultTunables()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	surface, err := dev.ReadSurface()
	if err != nil {
		t.Fatalf("ReadSurface: %v", err)
	}
	lit := 0
	for i := 3; i < len(surface); i += 4 {
		if surface[i] != 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("no particle reached the surface")
	}
}

func TestCloseReleasesResources(t *testing.T) {
	dev, err := software.New(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	p, err := New(dev, WithParticleCount(16))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetField(uniformField(4, 1, 2, 0, 1, 0, 1)); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if tex, buf, fb := dev.Live(); tex+buf+fb != 0 {
		t.Errorf("Live() = %d textures, %d buffers, %d framebuffers after Close", tex, buf, fb)
	}
	if p.State() != StateClosed {
		t.Errorf("State() = %v, want Closed", p.State())
	}
	if err := p.Advance(DefaultTunables()); !errors.Is(err, ErrClosed) {
		t.Errorf("Advance after Close = %v, want ErrClosed", err)
	}
	if err := p.SetParticleCount(4); !errors.Is(err, ErrClosed) {
		t.Errorf("SetParticleCount after Close = %v, want ErrClosed", err)
	}
}

type failingDevice struct {
	*software.Device
	program string
}

func (d failingDevice) CompileProgram(desc gpucore.ProgramDescriptor) (*gpucore.Program, error) {
	if desc.Label == d.program {
		return nil, &gpucore.ShaderCompileError{Program: desc.Label, Stage: gpucore.StageFragment, Log: "rejected"}
	}
	return d.Device.CompileProgram(desc)
}

func TestNewCompileError(t *testing.T) {
	for _, name := range []string{"draw", "screen", "update"} {
		t.Run(name, func(t *testing.T) {
			sw, err := software.New(8, 8)
			if err != nil {
				t.Fatal(err)
			}
			defer sw.Close()

			_, err = New(failingDevice{Device: sw, program: name})
			var ce *ShaderCompileError
			if !errors.As(err, &ce) {
				t.Fatalf("New() error = %v, want *ShaderCompileError", err)
			}
			if ce.Program != name {
				t.Errorf("Program = %q, want %q", ce.Program, name)
			}
			if tex, buf, fb := sw.Live(); tex+buf+fb != 0 {
				t.Errorf("%d textures, %d buffers, %d framebuffers leaked", tex, buf, fb)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateUninitialized, "Uninitialized"},
		{StateReady, "Ready"},
		{StateTicking, "Ticking"},
		{StateClosed, "Closed"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
