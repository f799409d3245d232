package windgl

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/windgl/gpucore"
)

// loggerPtr holds the package logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(gpucore.NopLogger())
}

// SetLogger configures the package logger. By default windgl produces no
// log output. Pass nil to restore the silent default.
//
// SetLogger is safe for concurrent use. Pipelines created afterwards pass
// the logger on to their device when it implements SetLogger(*slog.Logger);
// use WithLogger to set one per pipeline.
//
// Log levels used by windgl:
//   - [slog.LevelDebug]: resource recreation (particle state, trail buffers)
//   - [slog.LevelInfo]: pipeline lifecycle
//   - [slog.LevelWarn]: device objects still live after Close
//
// Example:
//
//	windgl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = gpucore.NopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to the device if it accepts one.
func propagateLogger(dev any, l *slog.Logger) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
