package autocert

import "context"

// Issuer obtains a certificate for a hostname from an ACME endpoint.
// It is a narrow capability: the manager never interprets challenge types or
// directory metadata, so alternate backends and test doubles satisfy it
// without touching the lifecycle logic.
type Issuer interface {
	// Issue performs a full ACME exchange for hostname and returns the
	// resulting record. It blocks for the duration of the exchange.
	Issue(ctx context.Context, hostname string) (*CertificateRecord, error)
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context, hostname string) (*CertificateRecord, error)

// Issue calls f.
func (f IssuerFunc) Issue(ctx context.Context, hostname string) (*CertificateRecord, error) {
	return f(ctx, hostname)
}
