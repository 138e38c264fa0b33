// This file attaches a logger to a context object and retrieves it again.
// Other packages only ever see NewContext and ContextWith.

package blog

import (
	"context"
	"io"
	"log/slog"
)

// sloggerCtxKeyType exists to ensure that sloggerCtxKey is a wholly unique
// singleton that cannot collide with context keys used by other packages.
type sloggerCtxKeyType struct{}

var sloggerCtxKey = sloggerCtxKeyType{}

// discard is used when a context carries no logger. Library callers which
// never set one up get silence rather than a panic.
var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// NewContext returns a copy of ctx which carries logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, sloggerCtxKey, logger)
}

func fromContext(ctx context.Context) *slog.Logger {
	slogger, ok := ctx.Value(sloggerCtxKey).(*slog.Logger)
	if slogger == nil || !ok {
		return discard
	}
	return slogger
}

// ContextWith returns a new context whose attached slogger will subsequently
// include the provided slog.Attrs in its log output.
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	// slog.Logger.With takes []any. slog.GroupAttrs with an empty key takes
	// []slog.Attr and still yields top-level attrs, which avoids copying.
	slogger := fromContext(ctx).With(slog.GroupAttrs("", attrs...))
	return context.WithValue(ctx, sloggerCtxKey, slogger)
}
