// This file separates audit logs from ordinary logs. AuditInfo and AuditError
// attach a singleton attr to their records; auditHandler routes records that
// carry it to a sub-handler whose writer prefixes each line with `[AUDIT] `.

package blog

import (
	"bytes"
	"context"
	"io"
	"log/slog"
)

// auditKey is the key used to identify the auditAttr.
const auditKey = "audit"

// auditAttr is added to Records by AuditError and AuditInfo, and detected by
// auditHandler.Handle.
var auditAttr = slog.Bool(auditKey, true)

// auditWriter prepends the string `[AUDIT] ` to each line written to it.
type auditWriter struct {
	inner io.Writer
}

var _ io.Writer = (*auditWriter)(nil)

// Write prepends the audit tag to its input and forwards the result to the
// inner io.Writer in a single call. slog guarantees one Write per Handle, so
// the tag is added exactly once per record.
func (w *auditWriter) Write(in []byte) (int, error) {
	out := bytes.Buffer{}
	out.WriteString("[AUDIT] ")
	out.Write(in)
	size, err := out.WriteTo(w.inner)
	return int(size), err
}

// newAuditHandler builds two copies of a handler from constructor, one of
// which writes through an auditWriter. It has to be generic because Go can't
// cast a `func(...) *slog.TextHandler` to a `func(...) slog.Handler`.
func newAuditHandler[T slog.Handler](constructor func(io.Writer, *slog.HandlerOptions) T, w io.Writer, opts *slog.HandlerOptions) *auditHandler {
	auditOpts := *opts
	origReplaceAttr := opts.ReplaceAttr
	auditOpts.ReplaceAttr = func(groups []string, attr slog.Attr) slog.Attr {
		// The auditWriter already tags the line, so drop the attr itself.
		// Only exact equality is dropped so that a mistaken
		// slog.String("audit", ...) is still logged.
		if attr.Equal(auditAttr) {
			return slog.Attr{}
		}
		if origReplaceAttr != nil {
			return origReplaceAttr(groups, attr)
		}
		return attr
	}

	return &auditHandler{
		audit: constructor(&auditWriter{inner: w}, &auditOpts),
		plain: constructor(w, opts),
	}
}

// auditHandler dispatches each Record to exactly one of two wrapped
// Handlers, depending on whether the Record is an audit log.
type auditHandler struct {
	audit slog.Handler
	plain slog.Handler
}

var _ slog.Handler = (*auditHandler)(nil)

func (h *auditHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.audit.Enabled(ctx, l) || h.plain.Enabled(ctx, l)
}

func (h *auditHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := h.plain
	for attr := range r.Attrs {
		if attr.Key == auditKey {
			handler = h.audit
			break
		}
	}
	return handler.Handle(ctx, r)
}

func (h *auditHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// An audit attr attached with With() must keep routing to the audit
	// handler, so check for it here as well as in Handle.
	for _, attr := range attrs {
		if attr.Key == auditKey {
			return &auditHandler{
				audit: h.audit.WithAttrs(attrs),
				plain: h.audit.WithAttrs(attrs),
			}
		}
	}
	return &auditHandler{
		audit: h.audit.WithAttrs(attrs),
		plain: h.plain.WithAttrs(attrs),
	}
}

func (h *auditHandler) WithGroup(name string) slog.Handler {
	return &auditHandler{
		audit: h.audit.WithGroup(name),
		plain: h.plain.WithGroup(name),
	}
}
