package windgl

import (
	"log/slog"
	"math/rand/v2"
)

// DefaultParticleCount is the particle count requested by New.
const DefaultParticleCount = 65536

// Option configures a Pipeline during creation.
//
// Example:
//
//	p, err := windgl.New(dev,
//		windgl.WithParticleCount(1<<14),
//		windgl.WithRandSource(rand.NewPCG(1, 2)),
//	)
type Option func(*options)

// options holds optional configuration for Pipeline creation.
type options struct {
	particleCount int
	ramp          []ColorStop
	rand          rand.Source
	logger        *slog.Logger
}

// defaultOptions returns the default pipeline options.
func defaultOptions() options {
	return options{
		particleCount: DefaultParticleCount,
		ramp:          DefaultColorRamp(),
	}
}

// WithParticleCount sets the requested particle count. The effective count
// is the next perfect square.
func WithParticleCount(n int) Option {
	return func(o *options) {
		o.particleCount = n
	}
}

// WithColorRamp sets the speed color ramp.
func WithColorRamp(stops []ColorStop) Option {
	return func(o *options) {
		o.ramp = stops
	}
}

// WithRandSource sets the source for the initial particle state and the
// per-tick respawn seeds. A fixed source makes runs reproducible.
func WithRandSource(src rand.Source) Option {
	return func(o *options) {
		o.rand = src
	}
}

// WithLogger sets the pipeline logger. It defaults to the package logger
// at the time New is called.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
