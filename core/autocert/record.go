package autocert

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"
)

// CertificateRecord is an immutable certificate bundle for a single hostname:
// the PEM chain (leaf first), the private key, and the validity window.
// Records are created by a successful issuance and superseded, never mutated.
type CertificateRecord struct {
	Hostname       string
	CertificatePEM []byte
	PrivateKeyPEM  []byte
	NotBefore      time.Time
	NotAfter       time.Time
	IssuedAt       time.Time

	tlsCert *tls.Certificate
}

// NewCertificateRecord builds a record from a PEM certificate chain and key.
// The chain must be leaf first; the validity window is read from the leaf.
// issuedAt is clamped into [NotBefore, NotAfter].
func NewCertificateRecord(hostname string, certPEM, keyPEM []byte, issuedAt time.Time) (*CertificateRecord, error) {
	if hostname == "" {
		return nil, ErrInvalidDomain
	}

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCertificate, err)
	}

	leaf := tlsCert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(tlsCert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("%w: parse leaf: %w", ErrMalformedCertificate, err)
		}
		tlsCert.Leaf = leaf
	}

	if issuedAt.Before(leaf.NotBefore) {
		issuedAt = leaf.NotBefore
	}
	if issuedAt.After(leaf.NotAfter) {
		issuedAt = leaf.NotAfter
	}

	return &CertificateRecord{
		Hostname:       hostname,
		CertificatePEM: append([]byte(nil), certPEM...),
		PrivateKeyPEM:  append([]byte(nil), keyPEM...),
		NotBefore:      leaf.NotBefore,
		NotAfter:       leaf.NotAfter,
		IssuedAt:       issuedAt,
		tlsCert:        &tlsCert,
	}, nil
}

// ParseCertificateRecord restores a record from the stored bundle format:
// the certificate chain PEM with the private key PEM appended. The issuance
// instant is not part of the bundle, so IssuedAt collapses to NotBefore.
func ParseCertificateRecord(hostname string, bundle []byte) (*CertificateRecord, error) {
	var certPEM, keyPEM []byte

	rest := bundle
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		raw := pem.EncodeToMemory(block)
		if block.Type == "CERTIFICATE" {
			certPEM = append(certPEM, raw...)
		} else {
			keyPEM = append(keyPEM, raw...)
		}
	}

	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return nil, fmt.Errorf("%w: bundle missing certificate or key", ErrMalformedCertificate)
	}

	return NewCertificateRecord(hostname, certPEM, keyPEM, time.Time{})
}

// Encode serializes the record into the stored bundle format.
func (r *CertificateRecord) Encode() []byte {
	out := make([]byte, 0, len(r.CertificatePEM)+len(r.PrivateKeyPEM))
	out = append(out, r.CertificatePEM...)
	out = append(out, r.PrivateKeyPEM...)
	return out
}

// TLSCertificate returns the handshake-ready certificate and key pair.
func (r *CertificateRecord) TLSCertificate() *tls.Certificate {
	return r.tlsCert
}

// Expired reports whether the record's validity window has passed at now.
func (r *CertificateRecord) Expired(now time.Time) bool {
	return !now.Before(r.NotAfter)
}

// Lifetime returns the length of the record's validity window.
func (r *CertificateRecord) Lifetime() time.Duration {
	return r.NotAfter.Sub(r.NotBefore)
}
