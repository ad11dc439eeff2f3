package autocert

import "errors"

var (
	// ErrInvalidDomain is returned when the requested server name is empty or malformed.
	ErrInvalidDomain = errors.New("invalid domain name")

	// ErrHostnameNotAllowed is returned when a hostname is outside the identifier allowlist.
	// This is a permanent failure; the manager never contacts the ACME server for it.
	ErrHostnameNotAllowed = errors.New("hostname not allowed by identifier policy")

	// ErrIssuanceFailed is returned when an ACME issuance attempt fails.
	// The failure is transient: the next request or renewal tick starts a fresh attempt.
	ErrIssuanceFailed = errors.New("certificate issuance failed")

	// ErrIssuanceTimeout is returned to a waiter whose patience ran out before the
	// shared attempt resolved. The attempt itself keeps running.
	ErrIssuanceTimeout = errors.New("issuance wait timed out")

	// ErrCertificateExpired is returned when the cached certificate is past its
	// validity window and the blocking renewal also failed.
	ErrCertificateExpired = errors.New("certificate expired")

	// ErrCertificateNotFound is returned by a Store when no record exists for a hostname.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrStoreWriteFailed is reported when persisting a freshly issued certificate
	// fails. The in-memory record is still served for this process's lifetime.
	ErrStoreWriteFailed = errors.New("certificate store write failed")

	// ErrMalformedCertificate is returned when stored certificate data cannot be parsed.
	ErrMalformedCertificate = errors.New("malformed certificate data")

	// ErrStoreRequired is returned when the manager is constructed without a store.
	ErrStoreRequired = errors.New("certificate store is required")

	// ErrIssuerRequired is returned when the manager is constructed without an issuer.
	ErrIssuerRequired = errors.New("certificate issuer is required")
)
