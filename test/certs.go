package test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jmhodges/clock"
)

// OIDs that show up across the EV tests. DigiCertEV is one of the registered
// EV policies; the others are not.
var (
	DigiCertEV = asn1.ObjectIdentifier{2, 16, 840, 1, 114412, 2, 1}
	AnyPolicy  = asn1.ObjectIdentifier{2, 5, 29, 32, 0}
	// Baseline Requirements domain-validated reserved policy.
	CABFDomainValidated = asn1.ObjectIdentifier{2, 23, 140, 1, 2, 1}
)

var certificatePoliciesOID = asn1.ObjectIdentifier{2, 5, 29, 32}

type policyInformation struct {
	Policy asn1.ObjectIdentifier
}

// EVCert creates a self-signed leaf certificate for host whose
// certificatePolicies extension lists policies in the given order. With no
// policies the certificate carries no certificatePolicies extension at all.
// The certificate is the bare minimum needed to be served over TLS and
// isn't a robust example of a complete end entity certificate.
func EVCert(t *testing.T, clk clock.Clock, host string, policies ...asn1.ObjectIdentifier) *tls.Certificate {
	t.Helper()
	var value []byte
	if len(policies) > 0 {
		var infos []policyInformation
		for _, p := range policies {
			infos = append(infos, policyInformation{Policy: p})
		}
		var err error
		value, err = asn1.Marshal(infos)
		AssertNotError(t, err, "marshalling certificatePolicies")
	}
	cert := selfSigned(t, clk, host, value)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	AssertNotError(t, err, "failed to parse self-signed cert DER")
	cert.Leaf = leaf
	return cert
}

// MalformedPolicyCert creates a self-signed leaf certificate for host whose
// certificatePolicies extension holds value verbatim. crypto/x509 won't parse
// such a certificate, so Leaf is left nil.
func MalformedPolicyCert(t *testing.T, clk clock.Clock, host string, value []byte) *tls.Certificate {
	t.Helper()
	return selfSigned(t, clk, host, value)
}

func selfSigned(t *testing.T, clk clock.Clock, host string, policies []byte) *tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	AssertNotError(t, err, "ecdsa.GenerateKey failed")

	var serialBytes [16]byte
	_, _ = rand.Read(serialBytes[:])

	template := &x509.Certificate{
		SerialNumber: big.NewInt(0).SetBytes(serialBytes[:]),
		Subject:      pkix.Name{CommonName: host},
		DNSNames:     []string{host},
		NotBefore:    clk.Now(),
		NotAfter:     clk.Now().Add(90 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if policies != nil {
		template.ExtraExtensions = []pkix.Extension{{Id: certificatePoliciesOID, Value: policies}}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	AssertNotError(t, err, "x509.CreateCertificate failed")
	return &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}
}

// TLSServer starts a TLS server on the loopback interface which presents
// cert to every client. The server is closed when the test ends.
func TLSServer(t *testing.T, cert *tls.Certificate) *httptest.Server {
	t.Helper()
	hs := httptest.NewUnstartedServer(http.NotFoundHandler())
	hs.TLS = &tls.Config{
		Certificates: []tls.Certificate{*cert},
		ClientAuth:   tls.NoClientCert,
	}
	hs.StartTLS()
	t.Cleanup(hs.Close)
	return hs
}

// HostPort splits a test server's listen address into the host and numeric
// port that a probe needs.
func HostPort(t *testing.T, addr net.Addr) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr.String())
	AssertNotError(t, err, "splitting listener address")
	port, err := strconv.Atoi(portStr)
	AssertNotError(t, err, "parsing listener port")
	return host, port
}
