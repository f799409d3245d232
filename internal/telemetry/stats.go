// Package telemetry computes per-tick statistics of a particle simulation
// and writes them as CSV.
package telemetry

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gogpu/windgl"
	"github.com/gogpu/windgl/codec"
)

// TickStats is one CSV row.
type TickStats struct {
	Tick      uint64  `csv:"tick"`
	Particles int     `csv:"particles"`
	MeanX     float64 `csv:"mean_x"`
	MeanY     float64 `csv:"mean_y"`
	StdX      float64 `csv:"std_x"`
	StdY      float64 `csv:"std_y"`
	MeanSpeed float64 `csv:"mean_speed"`
	P90Speed  float64 `csv:"p90_speed"`
	Coverage  float64 `csv:"coverage"` // share of surface pixels with nonzero alpha
	FrameMS   float64 `csv:"frame_ms"`
}

// Collector turns particle and surface readbacks into TickStats. It keeps
// the decoded field so speeds can be looked up per particle.
type Collector struct {
	field         []byte
	width, height int
	bounds        codec.Bounds

	xs, ys, speeds []float64
}

// NewCollector returns a collector for particles moving through f.
func NewCollector(f windgl.VectorField) (*Collector, error) {
	pix, w, h, err := f.Image.RGBA()
	if err != nil {
		return nil, fmt.Errorf("telemetry: field image: %w", err)
	}
	return &Collector{field: pix, width: w, height: h, bounds: f.Bounds()}, nil
}

// speedAt returns the field speed nearest to (x, y).
func (c *Collector) speedAt(x, y float32) float64 {
	px := min(max(int(x*float32(c.width)), 0), c.width-1)
	py := min(max(int(y*float32(c.height)), 0), c.height-1)
	i := (py*c.width + px) * 4
	u, v := codec.DecodeVelocity([4]uint8(c.field[i:i+4]), c.bounds)
	return float64(codec.Length(u, v))
}

// Collect computes the statistics of one tick. particles holds the RGBA
// particle state and surface the presented frame; either may be nil.
func (c *Collector) Collect(tick uint64, particles, surface []byte, frame time.Duration) TickStats {
	s := TickStats{
		Tick:    tick,
		FrameMS: float64(frame.Microseconds()) / 1000,
	}

	n := len(particles) / 4
	s.Particles = n
	if n > 0 {
		c.xs, c.ys, c.speeds = c.xs[:0], c.ys[:0], c.speeds[:0]
		for i := range n {
			x, y := codec.DecodePosition([4]uint8(particles[i*4 : i*4+4]))
			c.xs = append(c.xs, float64(x))
			c.ys = append(c.ys, float64(y))
			c.speeds = append(c.speeds, c.speedAt(x, y))
		}
		s.MeanX, s.StdX = stat.MeanStdDev(c.xs, nil)
		s.MeanY, s.StdY = stat.MeanStdDev(c.ys, nil)
		s.MeanSpeed = stat.Mean(c.speeds, nil)
		sort.Float64s(c.speeds)
		s.P90Speed = stat.Quantile(0.9, stat.Empirical, c.speeds, nil)
	}

	if px := len(surface) / 4; px > 0 {
		lit := 0
		for i := 3; i < len(surface); i += 4 {
			if surface[i] != 0 {
				lit++
			}
		}
		s.Coverage = float64(lit) / float64(px)
	}
	return s
}
