package acmeclient

import (
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
)

// Option configures the Client.
type Option func(*config) error

// WithEAB sets the External Account Binding credentials used during account
// registration.
func WithEAB(kid, hmacKey string) Option {
	return func(cfg *config) error {
		cfg.eabKid = strings.TrimSpace(kid)
		cfg.eabHMACKey = strings.TrimSpace(hmacKey)
		return nil
	}
}

// WithCertificateKeyType overrides the key type for issued certificate keys
// (default RSA 2048).
func WithCertificateKeyType(keyType certcrypto.KeyType) Option {
	return func(cfg *config) error {
		cfg.certificateKeyType = keyType
		return nil
	}
}

// WithHTTP01Address selects the bind address for the internal HTTP-01
// challenge server (host:port). Leave empty to bind all interfaces on port 80.
func WithHTTP01Address(addr string) Option {
	return func(cfg *config) error {
		cfg.http01Address = strings.TrimSpace(addr)
		return nil
	}
}

// WithHTTP01ProxyHeader sets the header the challenge server inspects for host
// matching when behind a proxy (e.g. X-Forwarded-Host).
func WithHTTP01ProxyHeader(header string) Option {
	return func(cfg *config) error {
		cfg.proxyHeader = strings.TrimSpace(header)
		return nil
	}
}

// WithBundle toggles whether issued certificates include the issuer chain
// concatenated to the leaf (default true).
func WithBundle(bundle bool) Option {
	return func(cfg *config) error {
		cfg.bundle = bundle
		return nil
	}
}
