package tlsprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/netip"

	ztls "github.com/zmap/zcrypto/tls"

	"github.com/letsencrypt/evcheck/policyasn1"
)

// fetchRawLeaf reconnects to hostPort and records the leaf certificate the
// server sends without requiring crypto/x509 to accept it. The result carries
// only the DER and the undecoded extensions, which is all EV evaluation
// reads. zcrypto tops out at TLS 1.2, so a minimum of TLS 1.3 can't be
// honored here.
func (p *Prober) fetchRawLeaf(ctx context.Context, hostPort, host string) (*x509.Certificate, error) {
	if p.minVersion > tls.VersionTLS12 {
		return nil, errors.New("minimum TLS version is above what the raw fetch supports")
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()
	conn, err := p.dial(dialCtx, "tcp", hostPort)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	err = conn.SetDeadline(p.clk.Now().Add(p.readTimeout))
	if err != nil {
		return nil, err
	}

	conf := &ztls.Config{
		MinVersion:         p.minVersion,
		MaxVersion:         ztls.VersionTLS12,
		InsecureSkipVerify: true,
	}
	if _, err := netip.ParseAddr(host); err != nil {
		conf.ServerName = host
	}
	zconn := ztls.Client(conn, conf)
	// The handshake is expected to fail once zcrypto reaches the same
	// certificate. The handshake log already holds what the server sent.
	_ = zconn.Handshake()

	hl := zconn.GetHandshakeLog()
	if hl == nil || hl.ServerCertificates == nil || len(hl.ServerCertificates.Certificate.Raw) == 0 {
		return nil, errors.New("no server certificate was recorded")
	}
	der := hl.ServerCertificates.Certificate.Raw
	exts, err := policyasn1.CertificateExtensions(der)
	if err != nil {
		return nil, err
	}
	return &x509.Certificate{Raw: der, Extensions: exts}, nil
}
