package evaluator

import (
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	berrors "github.com/letsencrypt/evcheck/errors"
)

const (
	defaultPort = 443

	noHostnameDetail  = "No hostname provided"
	invalidPortDetail = "Invalid port provided"
)

// Target is a scan target reduced to what a TLS probe needs.
type Target struct {
	Host   string
	Port   int
	Scheme string
}

// ParseTarget derives a Target from a URL such as "https://example.com".
// The port defaults to 443 whatever the scheme, because the check is only
// meaningful against a TLS endpoint. Hostnames are lower-cased and
// converted to their ASCII form. All failures are InvalidTarget errors.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		// net/url rejects a non-numeric port itself.
		if strings.Contains(err.Error(), "invalid port") {
			return Target{}, berrors.InvalidTargetError(invalidPortDetail)
		}
		return Target{}, berrors.InvalidTargetError(noHostnameDetail)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Target{}, berrors.InvalidTargetError(noHostnameDetail)
	}
	if _, err := netip.ParseAddr(host); err != nil {
		host, err = idna.Lookup.ToASCII(host)
		if err != nil || host == "" {
			return Target{}, berrors.InvalidTargetError(noHostnameDetail)
		}
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Target{}, berrors.InvalidTargetError(invalidPortDetail)
		}
	}

	return Target{
		Host:   host,
		Port:   port,
		Scheme: u.Scheme,
	}, nil
}

// IsHTTPS reports whether the target was given with the https scheme.
func (t Target) IsHTTPS() bool {
	return t.Scheme == "https"
}

// HostPort returns the target in host:port form, bracketing IPv6 literals.
func (t Target) HostPort() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	if t.Host == "" {
		return ""
	}
	return t.Scheme + "://" + t.HostPort()
}
