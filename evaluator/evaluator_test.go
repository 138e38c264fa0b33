package evaluator

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/letsencrypt/evcheck/blog"
	berrors "github.com/letsencrypt/evcheck/errors"
	"github.com/letsencrypt/evcheck/evoids"
	"github.com/letsencrypt/evcheck/policyasn1"
	"github.com/letsencrypt/evcheck/test"
	"github.com/letsencrypt/evcheck/tlsprobe"
)

type fetchCall struct {
	host string
	port int
}

type stubFetcher struct {
	sync.Mutex
	cert  *x509.Certificate
	err   error
	panic bool
	calls []fetchCall
}

func (f *stubFetcher) FetchLeafCertificate(_ context.Context, host string, port int) (*x509.Certificate, error) {
	f.Lock()
	f.calls = append(f.calls, fetchCall{host, port})
	f.Unlock()
	if f.panic {
		panic("fetcher exploded")
	}
	return f.cert, f.err
}

func setup(t *testing.T, f CertificateFetcher) *Evaluator {
	t.Helper()
	return New(evoids.Default(), f, prometheus.NewRegistry(), clock.NewFake())
}

func leafWith(t *testing.T, policies ...asn1.ObjectIdentifier) *x509.Certificate {
	t.Helper()
	return test.EVCert(t, clock.New(), "example.com", policies...).Leaf
}

// certWithPolicyBytes builds a certificate struct carrying arbitrary
// certificatePolicies bytes. x509.ParseCertificate rejects malformed policy
// extensions, so such certificates can't come from DER.
func certWithPolicyBytes(value []byte) *x509.Certificate {
	return &x509.Certificate{
		Extensions: []pkix.Extension{{Id: policyasn1.CertificatePoliciesExtOID, Value: value}},
	}
}

func TestEvaluateCertificate(t *testing.T) {
	t.Parallel()

	emptyPolicies, err := asn1.Marshal([]policyasn1.PolicyInformation{})
	test.AssertNotError(t, err, "marshalling empty policies")

	testCases := []struct {
		name    string
		cert    *x509.Certificate
		status  Status
		reason  string
		matched string
	}{
		{
			name:    "registered EV policy",
			cert:    leafWith(t, test.DigiCertEV),
			status:  StatusEV,
			reason:  ReasonRegisteredPolicy,
			matched: test.DigiCertEV.String(),
		},
		{
			name:    "EV policy after anyPolicy and a BR policy",
			cert:    leafWith(t, test.AnyPolicy, test.CABFDomainValidated, test.DigiCertEV),
			status:  StatusEV,
			reason:  ReasonRegisteredPolicy,
			matched: test.DigiCertEV.String(),
		},
		{
			name:   "no certificatePolicies extension",
			cert:   leafWith(t),
			status: StatusNotEV,
			reason: ReasonNoPolicyExtension,
		},
		{
			name:   "anyPolicy only",
			cert:   leafWith(t, test.AnyPolicy),
			status: StatusNotEV,
			reason: ReasonAnyPolicyOnly,
		},
		{
			name:   "domain validated only",
			cert:   leafWith(t, test.CABFDomainValidated),
			status: StatusNotEV,
			reason: ReasonNoRegisteredPolicy,
		},
		{
			name:   "EV OID prefix is not a match",
			cert:   leafWith(t, asn1.ObjectIdentifier{2, 16, 840, 1, 114412, 2}),
			status: StatusNotEV,
			reason: ReasonNoRegisteredPolicy,
		},
		{
			name:   "empty policy sequence",
			cert:   certWithPolicyBytes(emptyPolicies),
			status: StatusNotEV,
			reason: ReasonEmptyPolicies,
		},
		{
			name:   "malformed policy bytes",
			cert:   certWithPolicyBytes([]byte{0x30, 0x03, 0x06, 0x01}),
			status: StatusNotEV,
			reason: ReasonMalformedPolicies,
		},
		{
			name:   "policy extension that isn't a sequence",
			cert:   certWithPolicyBytes([]byte{0x04, 0x00}),
			status: StatusNotEV,
			reason: ReasonMalformedPolicies,
		},
	}
	e := setup(t, &stubFetcher{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.EvaluateCertificate(context.Background(), tc.cert)
			test.AssertEquals(t, res.Status, tc.status)
			test.AssertEquals(t, res.Reason, tc.reason)
			test.AssertEquals(t, res.MatchedOID, tc.matched)
			test.Assert(t, res.PolicyOIDs != nil, "PolicyOIDs should never be nil for a verdict")
		})
	}
}

func TestMalformedPoliciesAreLogged(t *testing.T) {
	t.Parallel()

	log := blog.NewMock()
	ctx := blog.NewContext(context.Background(), log.Logger())
	e := setup(t, &stubFetcher{})

	res := e.EvaluateCertificate(ctx, certWithPolicyBytes([]byte{0xff}))
	test.AssertEquals(t, res.Status, StatusNotEV)
	test.AssertEquals(t, len(log.GetAllMatching(`level=WARN.*Malformed certificatePolicies`)), 1)
}

func TestEvaluateEV(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{cert: leafWith(t, test.DigiCertEV)}
	e := setup(t, f)

	res := e.Evaluate(context.Background(), "https://example.com")
	test.AssertEquals(t, res.Status, StatusEV)
	test.AssertEquals(t, res.MatchedOID, "2.16.840.1.114412.2.1")
	test.AssertDeepEquals(t, res.PolicyOIDs, []string{"2.16.840.1.114412.2.1"})
	test.AssertEquals(t, res.Target, Target{Host: "example.com", Port: 443, Scheme: "https"})
	test.Assert(t, !res.NonHTTPS, "https target should not be flagged")
	test.AssertNotError(t, res.Err, "EV result should carry no error")
	test.AssertMetricWithLabelsEquals(t, e.metrics.evaluations, prometheus.Labels{"status": "ev", "reason": ReasonRegisteredPolicy}, 1)
	test.AssertMetricWithLabelsEquals(t, e.metrics.probeLatency, prometheus.Labels{"outcome": "success"}, 1)
}

func TestEvaluateNonHTTPSStillProbes443(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{cert: leafWith(t)}
	e := setup(t, f)

	res := e.Evaluate(context.Background(), "http://example.com")
	test.Assert(t, res.NonHTTPS, "http target should be flagged")
	test.AssertEquals(t, res.Status, StatusNotEV)
	test.AssertDeepEquals(t, f.calls, []fetchCall{{"example.com", 443}})
}

func TestEvaluateNoHostnameMakesNoConnection(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{cert: leafWith(t, test.DigiCertEV)}
	e := setup(t, f)

	for _, raw := range []string{"", "example.com", "https://"} {
		res := e.Evaluate(context.Background(), raw)
		test.AssertEquals(t, res.Status, StatusIndeterminate)
		test.AssertEquals(t, res.Reason, ReasonNoHostname)
		test.Assert(t, berrors.Is(res.Err, berrors.InvalidTarget), "expected an InvalidTarget error")
	}
	for _, raw := range []string{"https://example.com:70000", "https://example.com:abc"} {
		res := e.Evaluate(context.Background(), raw)
		test.AssertEquals(t, res.Status, StatusIndeterminate)
		test.AssertEquals(t, res.Reason, ReasonInvalidPort)
	}

	test.AssertEquals(t, len(f.calls), 0)
	test.AssertMetricWithLabelsEquals(t, e.metrics.evaluations, prometheus.Labels{"status": "indeterminate"}, 5)
}

func TestEvaluateProbeErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		err    error
		reason string
	}{
		{"handshake", berrors.HandshakeError(nil, "Remote error: handshake failure"), ReasonHandshake},
		{"connect timeout", berrors.ConnectionError(context.DeadlineExceeded, "Timeout during connect (likely firewall problem)"), ReasonConnection},
		{"uncategorized", net.ErrClosed, ReasonInternal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := setup(t, &stubFetcher{err: tc.err})
			res := e.Evaluate(context.Background(), "http://example.com:8443")
			test.AssertEquals(t, res.Status, StatusIndeterminate)
			test.AssertEquals(t, res.Reason, tc.reason)
			test.AssertErrorIs(t, res.Err, tc.err)
			test.AssertEquals(t, res.Target.Port, 8443)
			test.Assert(t, res.NonHTTPS, "advisory should survive a probe failure")
		})
	}
}

func TestEvaluateNilCertificate(t *testing.T) {
	t.Parallel()

	e := setup(t, &stubFetcher{})
	res := e.Evaluate(context.Background(), "https://example.com")
	test.AssertEquals(t, res.Status, StatusIndeterminate)
	test.Assert(t, berrors.Is(res.Err, berrors.Internal), "expected an Internal error")
}

func TestEvaluateRecoversPanic(t *testing.T) {
	t.Parallel()

	log := blog.NewMock()
	ctx := blog.NewContext(context.Background(), log.Logger())
	e := setup(t, &stubFetcher{panic: true})

	res := e.Evaluate(ctx, "https://example.com")
	test.AssertEquals(t, res.Status, StatusIndeterminate)
	test.AssertEquals(t, res.Reason, ReasonInternal)
	test.AssertEquals(t, res.Target.Host, "example.com")
	test.Assert(t, berrors.Is(res.Err, berrors.Internal), "expected an Internal error")
	test.AssertEquals(t, len(log.GetAllMatching(`^\[AUDIT\] .*Recovered from panic`)), 1)
	test.AssertMetricWithLabelsEquals(t, e.metrics.evaluations, prometheus.Labels{"status": "indeterminate", "reason": ReasonInternal}, 1)
}

func TestEvaluateAgainstTLSServer(t *testing.T) {
	t.Parallel()

	prober, err := tlsprobe.New(tlsprobe.Config{}, clock.New())
	test.AssertNotError(t, err, "creating prober")
	e := New(evoids.Default(), prober, prometheus.NewRegistry(), clock.New())

	ev := test.TLSServer(t, test.EVCert(t, clock.New(), "localhost", test.AnyPolicy, test.DigiCertEV))
	res := e.Evaluate(context.Background(), "https://"+ev.Listener.Addr().String())
	test.AssertEquals(t, res.Status, StatusEV)
	test.AssertDeepEquals(t, res.PolicyOIDs, []string{"2.5.29.32.0", "2.16.840.1.114412.2.1"})

	dv := test.TLSServer(t, test.EVCert(t, clock.New(), "localhost", test.CABFDomainValidated))
	res = e.Evaluate(context.Background(), "https://"+dv.Listener.Addr().String())
	test.AssertEquals(t, res.Status, StatusNotEV)

	bad := test.TLSServer(t, test.MalformedPolicyCert(t, clock.New(), "localhost", []byte{0x30, 0x03, 0x06, 0x01}))
	res = e.Evaluate(context.Background(), "https://"+bad.Listener.Addr().String())
	test.AssertEquals(t, res.Status, StatusNotEV)
	test.AssertEquals(t, res.Reason, ReasonMalformedPolicies)
	test.AssertNotError(t, res.Err, "a malformed policies extension is a verdict, not a failure")
}

func TestEvaluateSilentServerIsBounded(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	test.AssertNotError(t, err, "listening")
	t.Cleanup(func() { l.Close() })
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()

	prober, err := tlsprobe.New(tlsprobe.Config{}, clock.New())
	test.AssertNotError(t, err, "creating prober")
	e := New(evoids.Default(), prober, prometheus.NewRegistry(), clock.New())

	started := time.Now()
	res := e.Evaluate(context.Background(), "https://"+l.Addr().String())
	took := time.Since(started)

	test.AssertEquals(t, res.Status, StatusIndeterminate)
	test.AssertEquals(t, res.Reason, ReasonConnection)
	test.Assert(t, took < 5*time.Second, "evaluation should be bounded by the read timeout")
}
