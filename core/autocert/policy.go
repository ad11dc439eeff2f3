package autocert

import "time"

const (
	// DefaultRenewBefore starts renewal 30 days before expiry.
	DefaultRenewBefore = 30 * 24 * time.Hour

	// DefaultRenewBeforeFraction starts renewal halfway through the validity window.
	DefaultRenewBeforeFraction = 0.5
)

// RenewalConfig holds the thresholds that decide when proactive renewal begins.
// Zero values mean "not configured"; when neither threshold is set the fraction
// default of 0.5 applies.
type RenewalConfig struct {
	// RenewBefore renews this long before NotAfter.
	RenewBefore time.Duration

	// RenewBeforeFraction renews once this fraction of the validity window
	// remains. Must be in (0, 1] to take effect.
	RenewBeforeFraction float64
}

func (c RenewalConfig) secondsConfigured() bool {
	return c.RenewBefore > 0
}

func (c RenewalConfig) fractionConfigured() bool {
	return c.RenewBeforeFraction > 0 && c.RenewBeforeFraction <= 1
}

// RenewalInstant computes the point in time at which renewal of rec should
// begin: the earlier of the configured candidates. Tightening either threshold
// never delays renewal.
func (c RenewalConfig) RenewalInstant(rec *CertificateRecord) time.Time {
	bySeconds := func(before time.Duration) time.Time {
		return rec.NotAfter.Add(-before)
	}
	byFraction := func(fraction float64) time.Time {
		remaining := time.Duration(float64(rec.Lifetime()) * fraction)
		return bySeconds(remaining)
	}

	switch {
	case c.secondsConfigured() && c.fractionConfigured():
		s, f := bySeconds(c.RenewBefore), byFraction(c.RenewBeforeFraction)
		if s.Before(f) {
			return s
		}
		return f
	case c.secondsConfigured():
		return bySeconds(c.RenewBefore)
	case c.fractionConfigured():
		return byFraction(c.RenewBeforeFraction)
	default:
		return byFraction(DefaultRenewBeforeFraction)
	}
}

// ShouldRenew reports whether rec is due for renewal at now. A nil record and
// an expired record are always due. Pure and deterministic; the caller injects
// the clock.
func (c RenewalConfig) ShouldRenew(now time.Time, rec *CertificateRecord) bool {
	if rec == nil {
		return true
	}
	if rec.Expired(now) {
		return true
	}
	return !now.Before(c.RenewalInstant(rec))
}
