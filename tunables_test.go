package windgl

import (
	"math"
	"sync"
	"testing"
)

func TestTunablesClamped(t *testing.T) {
	nan := float32(math.NaN())
	got := Tunables{FadeOpacity: 1.5, SpeedFactor: 3, DropRate: -1, DropRateBump: nan}.Clamped()
	want := Tunables{FadeOpacity: 1, SpeedFactor: 3, DropRate: 0, DropRateBump: 0}
	if got != want {
		t.Errorf("Clamped() = %+v, want %+v", got, want)
	}
}

func TestTunableSetZeroValue(t *testing.T) {
	var s TunableSet
	if got := s.Load(); got != DefaultTunables() {
		t.Errorf("zero TunableSet Load() = %+v, want defaults", got)
	}
}

func TestTunableSetStore(t *testing.T) {
	s := NewTunableSet(Tunables{FadeOpacity: 0.5})
	if got := s.Load().FadeOpacity; got != 0.5 {
		t.Errorf("FadeOpacity = %v, want 0.5", got)
	}
	s.Store(Tunables{SpeedFactor: 2})
	if got := s.Load(); got != (Tunables{SpeedFactor: 2}) {
		t.Errorf("Load() = %+v", got)
	}
}

func TestTunableSetConcurrentUpdate(t *testing.T) {
	s := NewTunableSet(Tunables{})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				s.Update(func(t Tunables) Tunables {
					t.SpeedFactor++
					return t
				})
			}
		}()
	}
	wg.Wait()
	if got := s.Load().SpeedFactor; got != 800 {
		t.Errorf("SpeedFactor = %v, want 800", got)
	}
}
