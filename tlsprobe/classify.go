package tlsprobe

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/letsencrypt/evcheck/canceled"
	berrors "github.com/letsencrypt/evcheck/errors"
)

// dialError categorizes a failure to establish the TCP connection.
func dialError(err error) error {
	var dnsErr *net.DNSError
	switch {
	case canceled.Is(err):
		return berrors.ConnectionError(err, "Check canceled before connecting")
	case errors.As(err, &dnsErr):
		if dnsErr.IsNotFound {
			return berrors.ConnectionError(err, "DNS problem: NXDOMAIN looking up %s", dnsErr.Name)
		}
		return berrors.ConnectionError(err, "DNS problem: looking up %s", dnsErr.Name)
	case isTimeout(err):
		return berrors.ConnectionError(err, "Timeout during connect (likely firewall problem)")
	case errors.Is(err, syscall.ECONNREFUSED):
		return berrors.ConnectionError(err, "Connection refused")
	case errors.Is(err, syscall.ECONNRESET):
		return berrors.ConnectionError(err, "Connection reset by peer")
	case errors.Is(err, syscall.ENETUNREACH):
		return berrors.ConnectionError(err, "Network unreachable")
	case errors.Is(err, syscall.EHOSTUNREACH):
		return berrors.ConnectionError(err, "Host unreachable")
	}
	return berrors.ConnectionError(err, "Error getting connection")
}

// handshakeError categorizes a failure after the TCP connection was up.
// Timeouts and resets are still connection problems; everything else the
// peer did wrong is a handshake problem.
func handshakeError(err error) error {
	var recordErr tls.RecordHeaderError
	var opErr *net.OpError
	switch {
	case canceled.Is(err):
		return berrors.ConnectionError(err, "Check canceled during TLS handshake")
	case isTimeout(err):
		return berrors.ConnectionError(err, "Timeout during read (your server may be slow or overloaded)")
	case errors.Is(err, syscall.ECONNRESET):
		return berrors.ConnectionError(err, "Connection reset by peer")
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return berrors.HandshakeError(err, "Connection closed during TLS handshake")
	case errors.As(err, &recordErr):
		if looksLikeHTTP(recordErr.RecordHeader[:]) {
			return berrors.HandshakeError(err, "Server only speaks HTTP, not TLS")
		}
		return berrors.HandshakeError(err, "Malformed TLS record")
	case unparseableCertificate(err):
		return berrors.HandshakeError(err, "Server certificate could not be parsed")
	case errors.As(err, &opErr) && opErr.Op == "remote error":
		return berrors.HandshakeError(err, "Remote error: %s", opErr.Err)
	}
	return berrors.HandshakeError(err, "Error completing TLS handshake")
}

// unparseableCertificate reports whether crypto/tls gave up because
// crypto/x509 couldn't parse a certificate the server sent, as with a
// malformed certificatePolicies extension.
func unparseableCertificate(err error) bool {
	return strings.Contains(err.Error(), "failed to parse certificate")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func looksLikeHTTP(header []byte) bool {
	return string(header) == "HTTP/"
}
