package gpucore

import (
	"context"
	"log/slog"
)

// NopHandler is a slog.Handler that drops every record. It reports every
// level as disabled so callers skip building attributes.
type NopHandler struct{}

func (NopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NopHandler{} }
func (NopHandler) WithGroup(string) slog.Handler             { return NopHandler{} }

// NopLogger returns a logger that produces no output. Devices and
// pipelines start with it until a logger is set.
func NopLogger() *slog.Logger { return slog.New(NopHandler{}) }
