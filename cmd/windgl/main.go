// Command windgl runs the wind particle simulation headless and writes the
// final frame as a PNG, with optional per-tick telemetry as CSV.
//
// Usage:
//
//	windgl [-config run.yaml] [-field wind.json] [-backend software] [-frames 300] [-out windgl.png] [-csv stats.csv]
//
// Flags override the matching configuration values. Sending SIGHUP reloads
// the tunables from the configuration file while the simulation runs.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/windgl"
	_ "github.com/gogpu/windgl/backend/software"
	_ "github.com/gogpu/windgl/backend/wgpu"
	"github.com/gogpu/windgl/internal/config"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML run configuration")
		fieldPath   = flag.String("field", "", "vector field metadata JSON (default: synthetic vortex)")
		backendName = flag.String("backend", "", "device backend (default: best available)")
		frames      = flag.Int("frames", 0, "number of ticks to run")
		out         = flag.String("out", "", "output PNG")
		csvPath     = flag.String("csv", "", "telemetry CSV")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	windgl.SetLogger(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("windgl: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "field":
			cfg.Field.Path = *fieldPath
		case "backend":
			cfg.Run.Backend = *backendName
		case "frames":
			cfg.Run.Frames = *frames
		case "out":
			cfg.Run.Out = *out
		case "csv":
			cfg.Run.CSV = *csvPath
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("windgl: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tunables := windgl.NewTunableSet(cfg.SimTunables())
	if *configPath != "" {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go reloadTunables(ctx, hup, *configPath, tunables, logger)
	}

	if err := run(ctx, cfg, tunables, logger); err != nil {
		log.Fatalf("windgl: %v", err)
	}
}

// reloadTunables stores the tunables of the configuration file every time
// hup delivers. The caller registers hup before starting the simulation so
// no SIGHUP falls back to the default action.
func reloadTunables(ctx context.Context, hup <-chan os.Signal, path string, set *windgl.TunableSet, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(path)
			if err != nil {
				logger.Warn("windgl: reload failed", "path", path, "error", err)
				continue
			}
			set.Store(cfg.SimTunables())
			logger.Info("windgl: tunables reloaded", "tunables", cfg.SimTunables())
		}
	}
}
