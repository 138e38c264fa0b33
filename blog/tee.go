package blog

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler sends each record to the console and to syslog. Each side keeps
// its own level, so a record reaches only the outputs configured for it.
type teeHandler struct {
	console slog.Handler
	syslog  slog.Handler
}

var _ slog.Handler = (*teeHandler)(nil)

func (h *teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.console.Enabled(ctx, l) || h.syslog.Enabled(ctx, l)
}

// Handle writes r to every output that accepts its level. A failed write to
// one output doesn't stop the other; all errors are returned together.
func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.console.Enabled(ctx, r.Level) {
		// Handlers may retain the record's attrs, so each gets its own clone.
		errs = append(errs, h.console.Handle(ctx, r.Clone()))
	}
	if h.syslog.Enabled(ctx, r.Level) {
		errs = append(errs, h.syslog.Handle(ctx, r.Clone()))
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		console: h.console.WithAttrs(attrs),
		syslog:  h.syslog.WithAttrs(attrs),
	}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{
		console: h.console.WithGroup(name),
		syslog:  h.syslog.WithGroup(name),
	}
}
