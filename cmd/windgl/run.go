package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gogpu/windgl"
	"github.com/gogpu/windgl/backend"
	"github.com/gogpu/windgl/fielddata"
	"github.com/gogpu/windgl/gpucore"
	"github.com/gogpu/windgl/internal/config"
	"github.com/gogpu/windgl/internal/telemetry"
)

// run executes one headless simulation described by cfg.
func run(ctx context.Context, cfg *config.Config, tunables *windgl.TunableSet, logger *slog.Logger) (err error) {
	field, err := loadField(cfg.Field)
	if err != nil {
		return err
	}
	ramp, err := cfg.ColorRamp()
	if err != nil {
		return err
	}

	dev, name, err := openDevice(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dev.Close())
	}()

	opts := []windgl.Option{
		windgl.WithParticleCount(cfg.Particles.Count),
		windgl.WithColorRamp(ramp),
		windgl.WithLogger(logger),
	}
	if seed := cfg.Particles.Seed; seed != 0 {
		opts = append(opts, windgl.WithRandSource(rand.NewPCG(seed, seed)))
	}
	p, err := windgl.New(dev, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, p.Close())
	}()
	if err := p.SetField(field); err != nil {
		return err
	}

	reader, canRead := dev.(gpucore.Reader)
	stats, err := openTelemetry(cfg.Run.CSV, field, canRead)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, stats.close())
	}()

	logger.Info("windgl: running",
		"backend", name,
		"particles", p.ParticleCount(),
		"field", fmt.Sprintf("%dx%d", field.Width, field.Height),
		"frames", cfg.Run.Frames)

	start := time.Now()
	for i := 0; i < cfg.Run.Frames; i++ {
		if ctx.Err() != nil {
			logger.Info("windgl: interrupted", "ticks", p.Ticks())
			break
		}
		tick := time.Now()
		if err := p.Advance(tunables.Load()); err != nil {
			return fmt.Errorf("tick %d: %w", p.Ticks(), err)
		}
		if stats.due(p.Ticks(), cfg.Run.TelemetryEvery) {
			if err := stats.record(p, reader, time.Since(tick)); err != nil {
				return err
			}
		}
	}
	elapsed := time.Since(start)
	logger.Info("windgl: done", "ticks", p.Ticks(), "elapsed", elapsed.Round(time.Millisecond))

	if cfg.Run.Out == "" {
		return nil
	}
	if !canRead {
		logger.Warn("windgl: backend cannot read back, skipping output", "backend", name)
		return nil
	}
	pix, err := reader.ReadSurface()
	if err != nil {
		return err
	}
	w, h := dev.SurfaceSize()
	if err := writePNG(cfg.Run.Out, pix, w, h); err != nil {
		return err
	}
	logger.Info("windgl: frame saved", "path", cfg.Run.Out, "width", w, "height", h)
	return nil
}

// loadField loads the configured field or synthesizes the vortex.
func loadField(fc config.FieldConfig) (windgl.VectorField, error) {
	if fc.Path == "" {
		return fielddata.Vortex(fc.VortexSize, fc.VortexSize, fc.VortexSpeed), nil
	}
	f, _, err := fielddata.Load(fc.Path)
	return f, err
}

// openDevice opens the configured backend, or the best available one.
func openDevice(cfg *config.Config, logger *slog.Logger) (gpucore.Device, string, error) {
	dc := backend.DeviceConfig{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		Logger: logger,
	}
	if cfg.Run.Backend == "" {
		return backend.Default(dc)
	}
	dev, err := backend.Open(cfg.Run.Backend, dc)
	return dev, cfg.Run.Backend, err
}

// telemetrySink writes per-tick statistics. The zero value discards them.
type telemetrySink struct {
	collector *telemetry.Collector
	writer    *telemetry.Writer
}

func openTelemetry(path string, field windgl.VectorField, canRead bool) (*telemetrySink, error) {
	if path == "" {
		return &telemetrySink{}, nil
	}
	if !canRead {
		return nil, fmt.Errorf("telemetry %s: backend cannot read back", path)
	}
	c, err := telemetry.NewCollector(field)
	if err != nil {
		return nil, err
	}
	w, err := telemetry.Create(path)
	if err != nil {
		return nil, err
	}
	return &telemetrySink{collector: c, writer: w}, nil
}

func (s *telemetrySink) due(tick uint64, every int) bool {
	return s.writer != nil && every > 0 && tick%uint64(every) == 0
}

func (s *telemetrySink) record(p *windgl.Pipeline, r gpucore.Reader, frame time.Duration) error {
	current, _ := p.ParticleTextures()
	particles, err := r.ReadPixels(current)
	if err != nil {
		return err
	}
	surface, err := r.ReadSurface()
	if err != nil {
		return err
	}
	return s.writer.Write(s.collector.Collect(p.Ticks(), particles, surface, frame))
}

func (s *telemetrySink) close() error {
	return s.writer.Close()
}

// writePNG encodes non-premultiplied RGBA rows as a PNG file.
func writePNG(path string, pix []byte, w, h int) error {
	img := &image.NRGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
