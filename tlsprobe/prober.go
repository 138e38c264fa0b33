// Package tlsprobe opens a TLS connection to a host and returns the leaf
// certificate it presents. No chain or hostname verification is performed:
// the certificate is wanted for inspection, not for trust.
package tlsprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/jmhodges/clock"

	"github.com/letsencrypt/evcheck/blog"
	berrors "github.com/letsencrypt/evcheck/errors"
)

// Fetcher is the interface the evaluator needs from a Prober.
type Fetcher interface {
	FetchLeafCertificate(ctx context.Context, host string, port int) (*x509.Certificate, error)
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Prober fetches leaf certificates. It holds no per-connection state and is
// safe for concurrent use.
type Prober struct {
	connectTimeout time.Duration
	readTimeout    time.Duration
	minVersion     uint16
	clk            clock.Clock
	dial           dialFunc
}

var _ Fetcher = (*Prober)(nil)

// New returns a Prober configured by conf.
func New(conf Config, clk clock.Clock) (*Prober, error) {
	minVersion, err := conf.minVersion()
	if err != nil {
		return nil, err
	}
	connectTimeout, readTimeout, err := conf.timeouts()
	if err != nil {
		return nil, err
	}
	// IPv6-to-IPv4 fallback is disabled so that IPv6 connectivity failures
	// are reported rather than masked.
	dialer := &net.Dialer{FallbackDelay: -1}
	return &Prober{
		connectTimeout: connectTimeout,
		readTimeout:    readTimeout,
		minVersion:     minVersion,
		clk:            clk,
		dial:           dialer.DialContext,
	}, nil
}

// FetchLeafCertificate connects to host:port, completes a TLS handshake and
// returns the first certificate the server sent. Failures are returned as
// errors of type Connection or Handshake. A certificate crypto/x509 rejects
// is fetched again and returned with only its raw DER and extensions set.
func (p *Prober) FetchLeafCertificate(ctx context.Context, host string, port int) (*x509.Certificate, error) {
	hostPort := net.JoinHostPort(host, strconv.Itoa(port))

	dialCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()
	conn, err := p.dial(dialCtx, "tcp", hostPort)
	if err != nil {
		blog.Debug(ctx, "TCP connect failed", blog.HostPort(hostPort), blog.Cause(err))
		return nil, dialError(err)
	}
	defer conn.Close()

	err = conn.SetDeadline(p.clk.Now().Add(p.readTimeout))
	if err != nil {
		return nil, berrors.ConnectionError(err, "Error setting read deadline")
	}

	tlsConn := tls.Client(conn, p.tlsConfig(host))
	err = tlsConn.HandshakeContext(ctx)
	if err != nil {
		if unparseableCertificate(err) {
			leaf, rawErr := p.fetchRawLeaf(ctx, hostPort, host)
			if rawErr == nil {
				return leaf, nil
			}
			blog.Debug(ctx, "Raw certificate fetch failed", blog.HostPort(hostPort), blog.Cause(rawErr))
		}
		blog.Debug(ctx, "TLS handshake failed", blog.HostPort(hostPort), blog.Cause(err))
		return nil, handshakeError(err)
	}

	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, berrors.HandshakeError(nil, "Server presented no certificates")
	}
	return certs[0], nil
}

func (p *Prober) tlsConfig(host string) *tls.Config {
	conf := &tls.Config{
		MinVersion: p.minVersion,
		// The certificate is only inspected, never trusted.
		InsecureSkipVerify: true,
	}
	if _, err := netip.ParseAddr(host); err != nil {
		conf.ServerName = host
	}
	return conf
}
