// Package evaluator decides whether the certificate a target presents is an
// Extended Validation certificate.
package evaluator

import (
	"context"
	"crypto/x509"
	"log/slog"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/letsencrypt/evcheck/blog"
	berrors "github.com/letsencrypt/evcheck/errors"
	"github.com/letsencrypt/evcheck/evoids"
	"github.com/letsencrypt/evcheck/policyasn1"
)

// CertificateFetcher obtains the leaf certificate served at host:port.
// Errors should be Connection or Handshake CheckErrors.
type CertificateFetcher interface {
	FetchLeafCertificate(ctx context.Context, host string, port int) (*x509.Certificate, error)
}

// Evaluator runs EV checks. The only state it holds is read-only, so one
// Evaluator may serve many concurrent evaluations.
type Evaluator struct {
	registry *evoids.Registry
	fetcher  CertificateFetcher
	clk      clock.Clock
	metrics  *evalMetrics
}

// New returns an Evaluator which matches certificates from fetcher against
// registry.
func New(registry *evoids.Registry, fetcher CertificateFetcher, stats prometheus.Registerer, clk clock.Clock) *Evaluator {
	return &Evaluator{
		registry: registry,
		fetcher:  fetcher,
		clk:      clk,
		metrics:  newEvalMetrics(stats),
	}
}

// Evaluate makes a single attempt to fetch and classify the certificate of
// rawTarget. It never returns an error: every failure becomes an
// Indeterminate Result carrying a categorized Err.
func (e *Evaluator) Evaluate(ctx context.Context, rawTarget string) (res Result) {
	ctx = blog.ContextWith(ctx, blog.Target(rawTarget))
	defer e.finish(ctx, &res)

	target, err := ParseTarget(rawTarget)
	if err != nil {
		reason := ReasonNoHostname
		if berrors.DetailOf(err) == invalidPortDetail {
			reason = ReasonInvalidPort
		}
		blog.Info(ctx, "Unusable scan target", blog.Cause(err))
		return indeterminate(Target{}, reason, err)
	}
	res.Target = target
	res.NonHTTPS = !target.IsHTTPS()
	if res.NonHTTPS {
		blog.Warn(ctx, "Non-HTTPS target supplied, probing the TLS port anyway", blog.HostPort(target.HostPort()))
	}

	cert, err := e.fetch(ctx, target)
	if err != nil {
		reason := ReasonInternal
		switch berrors.TypeOf(err) {
		case berrors.Handshake:
			reason = ReasonHandshake
		case berrors.Connection:
			reason = ReasonConnection
		}
		nonHTTPS := res.NonHTTPS
		res = indeterminate(target, reason, err)
		res.NonHTTPS = nonHTTPS
		return res
	}

	verdict := e.classify(ctx, cert)
	verdict.Target = target
	verdict.NonHTTPS = res.NonHTTPS
	return verdict
}

// EvaluateCertificate classifies an already obtained certificate.
func (e *Evaluator) EvaluateCertificate(ctx context.Context, cert *x509.Certificate) (res Result) {
	defer e.finish(ctx, &res)
	return e.classify(ctx, cert)
}

func (e *Evaluator) fetch(ctx context.Context, target Target) (*x509.Certificate, error) {
	started := e.clk.Now()
	cert, err := e.fetcher.FetchLeafCertificate(ctx, target.Host, target.Port)
	latency := e.clk.Since(started)

	outcome := "success"
	if err != nil {
		outcome = berrors.TypeOf(err).String()
	} else if cert == nil {
		outcome = berrors.Internal.String()
		err = berrors.InternalError("certificate fetcher returned neither a certificate nor an error")
	}
	e.metrics.probeLatency.WithLabelValues(outcome).Observe(latency.Seconds())

	if err != nil {
		blog.Info(ctx, "Fetching leaf certificate failed", blog.HostPort(target.HostPort()), blog.Latency(latency), blog.Cause(err))
		return nil, err
	}
	blog.Debug(ctx, "Fetched leaf certificate", blog.HostPort(target.HostPort()), blog.Latency(latency))
	return cert, nil
}

// classify scans every policy the certificate asserts, not only the first,
// so that a CA policy listed after anyPolicy or a BR reserved OID is found.
func (e *Evaluator) classify(ctx context.Context, cert *x509.Certificate) Result {
	if cert == nil {
		return indeterminate(Target{}, ReasonInternal, berrors.InternalError("no certificate to evaluate"))
	}

	der, ok := policyasn1.PolicyExtension(cert)
	if !ok {
		return notEV(ReasonNoPolicyExtension, []string{})
	}

	oids, err := policyasn1.ParsePolicyOIDs(der)
	if err != nil {
		blog.Warn(ctx, "Malformed certificatePolicies extension, treating as not EV", blog.Cause(err))
		return notEV(ReasonMalformedPolicies, []string{})
	}
	if len(oids) == 0 {
		return notEV(ReasonEmptyPolicies, oids)
	}

	matched, ok := e.registry.FirstMatch(oids)
	if ok {
		return Result{
			Status:     StatusEV,
			Reason:     ReasonRegisteredPolicy,
			MatchedOID: matched,
			PolicyOIDs: oids,
		}
	}

	anyPolicy := policyasn1.AnyPolicyOID.String()
	for _, oid := range oids {
		if oid != anyPolicy {
			return notEV(ReasonNoRegisteredPolicy, oids)
		}
	}
	return notEV(ReasonAnyPolicyOnly, oids)
}

// finish is deferred by every public entry point. It turns a panic into an
// Internal result and records the outcome.
func (e *Evaluator) finish(ctx context.Context, res *Result) {
	if r := recover(); r != nil {
		err := berrors.InternalError("panic during evaluation: %v", r)
		blog.AuditError(ctx, "Recovered from panic during EV evaluation", err)
		target, nonHTTPS := res.Target, res.NonHTTPS
		*res = indeterminate(target, ReasonInternal, err)
		res.NonHTTPS = nonHTTPS
	}

	e.metrics.evaluations.WithLabelValues(res.Status.String(), res.Reason).Inc()
	attrs := []slog.Attr{blog.Status(res.Status.String()), slog.String("reason", res.Reason)}
	if res.MatchedOID != "" {
		attrs = append(attrs, blog.OID(res.MatchedOID))
	}
	if res.PolicyOIDs != nil {
		attrs = append(attrs, blog.OIDs(res.PolicyOIDs))
	}
	blog.Info(ctx, "EV evaluation finished", attrs...)
}

func indeterminate(target Target, reason string, err error) Result {
	return Result{
		Target: target,
		Status: StatusIndeterminate,
		Reason: reason,
		Detail: berrors.DetailOf(err),
		Err:    err,
	}
}

func notEV(reason string, oids []string) Result {
	return Result{
		Status:     StatusNotEV,
		Reason:     reason,
		PolicyOIDs: oids,
	}
}
