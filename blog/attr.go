// This file contains helpers which make sure that commonly-logged values
// always have the same key name and value type.
//
// Several other attr keys are reserved and should not be used:
//   - "time", "level", "msg", "source": used by the slog package
//   - "error": used by our blog.Error and blog.AuditError helpers
//   - "audit": used by our blog.AuditError and blog.AuditInfo helpers

package blog

import (
	"log/slog"
	"time"
)

// Target returns a slog.Attr whose key is "target" and whose value is the
// scan target exactly as it was supplied.
func Target(raw string) slog.Attr {
	return slog.String("target", raw)
}

// HostPort returns a slog.Attr whose key is "hostPort".
func HostPort(hostPort string) slog.Attr {
	return slog.String("hostPort", hostPort)
}

// OID returns a slog.Attr whose key is "oid" and whose value is a policy
// identifier in dotted-decimal form.
func OID(oid string) slog.Attr {
	return slog.String("oid", oid)
}

// OIDs returns a slog.Attr whose key is "oids".
func OIDs(oids []string) slog.Attr {
	return slog.Any("oids", oids)
}

// Status returns a slog.Attr whose key is "status".
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// Latency returns a slog.Attr whose key is "latency".
func Latency(d time.Duration) slog.Attr {
	return slog.Duration("latency", d)
}

// Cause returns a slog.Attr whose key is "cause". It is for errors which are
// logged as context at lower levels, where the "error" key would be wrong.
func Cause(err error) slog.Attr {
	if err == nil {
		return slog.String("cause", "")
	}
	return slog.String("cause", err.Error())
}
