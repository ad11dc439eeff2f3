package autocert

import (
	"errors"
	"time"
)

// Config holds the externally supplied settings for a Manager. It is captured
// at construction and never re-read; the env tags mirror the variables the
// deployment environment provides.
type Config struct {
	// DirectoryURL is the ACME directory endpoint. Consumed by the issuer,
	// carried here so one configuration block covers the whole subsystem.
	DirectoryURL string `env:"ACME_DIRECTORY_URL"`

	// Contact is the ACME account contact email.
	Contact string `env:"ACME_CONTACT"`

	// EABKeyID and EABHMACKey are the External Account Binding credentials.
	EABKeyID   string `env:"ACME_KID"`
	EABHMACKey string `env:"ACME_HMAC_KEY"`

	// AllowIdentifiers lists the identifier policy descriptions issuance is
	// permitted for: exact hostnames, "*.domain" wildcards, IPs or CIDRs.
	AllowIdentifiers []string `env:"ACME_ALLOW_IDENTIFIERS"`

	// RenewBeforeSeconds renews this many seconds before expiry (default 30 days).
	RenewBeforeSeconds int `env:"ACME_RENEW_BEFORE_SECONDS" envDefault:"2592000"`

	// RenewBeforeFraction renews once this fraction of the validity window
	// remains (default 0.5).
	RenewBeforeFraction float64 `env:"ACME_RENEW_BEFORE_FRACTION" envDefault:"0.5"`

	// CheckEvery is the renewal loop scan interval.
	CheckEvery time.Duration `env:"AUTO_CERT_CHECK_EVERY" envDefault:"1h"`

	// IssueTimeout bounds how long a single caller waits on a blocking
	// issuance. The underlying attempt is not cancelled by this.
	IssueTimeout time.Duration `env:"AUTO_CERT_ISSUE_TIMEOUT" envDefault:"90s"`
}

var (
	// ErrAllowIdentifiersRequired is returned when no identifier policies are configured.
	ErrAllowIdentifiersRequired = errors.New("at least one allowed identifier is required")

	// ErrInvalidRenewBeforeFraction is returned when the fraction is outside (0, 1].
	ErrInvalidRenewBeforeFraction = errors.New("renew before fraction must be in (0, 1]")
)

// Validate checks the configuration and applies defaults for zero values.
func (c *Config) Validate() error {
	if len(c.AllowIdentifiers) == 0 {
		return ErrAllowIdentifiersRequired
	}
	if c.RenewBeforeFraction < 0 || c.RenewBeforeFraction > 1 {
		return ErrInvalidRenewBeforeFraction
	}
	if c.RenewBeforeSeconds < 0 {
		c.RenewBeforeSeconds = 0
	}
	if c.CheckEvery <= 0 {
		c.CheckEvery = time.Hour
	}
	if c.IssueTimeout <= 0 {
		c.IssueTimeout = 90 * time.Second
	}
	return nil
}

// renewalConfig derives the policy thresholds from the configuration.
func (c *Config) renewalConfig() RenewalConfig {
	return RenewalConfig{
		RenewBefore:         time.Duration(c.RenewBeforeSeconds) * time.Second,
		RenewBeforeFraction: c.RenewBeforeFraction,
	}
}
