package tlsprobe

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/letsencrypt/evcheck/config"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 3 * time.Second
	defaultMinTLSVersion  = "1.0"
)

var tlsVersions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// Config is exported to receive YAML configuration. Zero values fall back to
// their defaults.
type Config struct {
	// ConnectTimeout bounds the TCP connect. Default 5s.
	ConnectTimeout config.Duration `yaml:"connectTimeout" validate:"-"`
	// ReadTimeout bounds the TLS handshake once connected. Default 3s.
	ReadTimeout config.Duration `yaml:"readTimeout" validate:"-"`
	// MinTLSVersion is one of "1.0", "1.1", "1.2" or "1.3". Default "1.0",
	// so that old servers can still be inspected.
	MinTLSVersion string `yaml:"minTLSVersion" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
}

// timeouts returns the connect and read timeouts, with defaults applied.
// Negative values are an error.
func (c Config) timeouts() (time.Duration, time.Duration, error) {
	if c.ConnectTimeout.Duration < 0 {
		return 0, 0, fmt.Errorf("invalid connectTimeout %s, must not be negative", c.ConnectTimeout.Duration)
	}
	if c.ReadTimeout.Duration < 0 {
		return 0, 0, fmt.Errorf("invalid readTimeout %s, must not be negative", c.ReadTimeout.Duration)
	}
	return c.ConnectTimeout.Or(defaultConnectTimeout), c.ReadTimeout.Or(defaultReadTimeout), nil
}

func (c Config) minVersion() (uint16, error) {
	name := c.MinTLSVersion
	if name == "" {
		name = defaultMinTLSVersion
	}
	v, ok := tlsVersions[name]
	if !ok {
		return 0, fmt.Errorf("invalid minTLSVersion %q, must be one of 1.0, 1.1, 1.2 or 1.3", c.MinTLSVersion)
	}
	return v, nil
}
