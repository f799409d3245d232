package windgl

import "sync/atomic"

// Tunables are the per-tick simulation parameters.
type Tunables struct {
	// FadeOpacity scales the previous trail each tick. Values close to 1
	// leave long trails.
	FadeOpacity float32

	// SpeedFactor scales the per-tick particle step.
	SpeedFactor float32

	// DropRate is the base probability that a particle respawns at a
	// random position.
	DropRate float32

	// DropRateBump adds to DropRate in proportion to the local speed.
	DropRateBump float32
}

// DefaultTunables returns the default parameters.
func DefaultTunables() Tunables {
	return Tunables{
		FadeOpacity:  0.98,
		SpeedFactor:  0.15,
		DropRate:     0.003,
		DropRateBump: 0.01,
	}
}

// Clamped returns t with FadeOpacity, DropRate and DropRateBump clamped to
// [0, 1]. SpeedFactor is unbounded.
func (t Tunables) Clamped() Tunables {
	t.FadeOpacity = clamp01(t.FadeOpacity)
	t.DropRate = clamp01(t.DropRate)
	t.DropRateBump = clamp01(t.DropRateBump)
	return t
}

func clamp01(x float32) float32 {
	if x != x { // NaN
		return 0
	}
	return min(max(x, 0), 1)
}

// TunableSet holds Tunables that an external controller may replace while
// the pipeline ticks. Load never observes a partially written value.
//
// The zero value holds DefaultTunables.
type TunableSet struct {
	p atomic.Pointer[Tunables]
}

// NewTunableSet returns a set holding t.
func NewTunableSet(t Tunables) *TunableSet {
	s := &TunableSet{}
	s.Store(t)
	return s
}

// Load returns the current tunables.
func (s *TunableSet) Load() Tunables {
	if t := s.p.Load(); t != nil {
		return *t
	}
	return DefaultTunables()
}

// Store replaces the tunables.
func (s *TunableSet) Store(t Tunables) {
	s.p.Store(&t)
}

// Update applies fn to the current tunables and stores the result.
// Concurrent updates do not lose writes.
func (s *TunableSet) Update(fn func(Tunables) Tunables) {
	for {
		old := s.p.Load()
		cur := DefaultTunables()
		if old != nil {
			cur = *old
		}
		next := fn(cur)
		if s.p.CompareAndSwap(old, &next) {
			return
		}
	}
}
