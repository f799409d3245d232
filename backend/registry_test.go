package backend

import (
	"errors"
	"testing"

	"github.com/gogpu/windgl/gpucore"
)

// stubDevice satisfies gpucore.Device through the embedded nil interface;
// tests only compare identities.
type stubDevice struct {
	gpucore.Device
	name string
}

func withFactories(t *testing.T, fs map[string]Factory) {
	t.Helper()
	registryMu.Lock()
	saved := factories
	factories = fs
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		factories = saved
		registryMu.Unlock()
	})
}

func opener(name string) Factory {
	return func(DeviceConfig) (gpucore.Device, error) { return &stubDevice{name: name}, nil }
}

func failing(DeviceConfig) (gpucore.Device, error) { return nil, errors.New("no adapter") }

func TestDefaultPriority(t *testing.T) {
	cfg := DeviceConfig{Width: 8, Height: 8}
	tests := []struct {
		name      string
		factories map[string]Factory
		want      string
	}{
		{"hardware preferred", map[string]Factory{BackendWGPU: opener(BackendWGPU), BackendSoftware: opener(BackendSoftware)}, BackendWGPU},
		{"falls back when hardware fails", map[string]Factory{BackendWGPU: failing, BackendSoftware: opener(BackendSoftware)}, BackendSoftware},
		{"unknown backends last", map[string]Factory{"zzz": opener("zzz"), BackendSoftware: opener(BackendSoftware)}, BackendSoftware},
		{"only unknown", map[string]Factory{"custom": opener("custom")}, "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFactories(t, tt.factories)
			dev, name, err := Default(cfg)
			if err != nil {
				t.Fatalf("Default: %v", err)
			}
			if name != tt.want || dev.(*stubDevice).name != tt.want {
				t.Errorf("Default = %q, want %q", name, tt.want)
			}
		})
	}
}

func TestDefaultNoneAvailable(t *testing.T) {
	withFactories(t, map[string]Factory{BackendWGPU: failing})
	if _, _, err := Default(DeviceConfig{Width: 1, Height: 1}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("err = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOpen(t *testing.T) {
	withFactories(t, map[string]Factory{})
	Register("a", opener("a"))
	if !IsRegistered("a") {
		t.Fatal("a not registered")
	}
	if got := Available(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Available = %v", got)
	}
	if _, err := Open("a", DeviceConfig{Width: 0, Height: 4}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero width err = %v, want ErrInvalidSize", err)
	}
	if _, err := Open("b", DeviceConfig{Width: 4, Height: 4}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("unknown err = %v, want ErrBackendNotAvailable", err)
	}
	Unregister("a")
	if IsRegistered("a") {
		t.Error("a still registered")
	}
}
