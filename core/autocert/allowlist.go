package autocert

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

// identifierPolicy decides whether a single policy description matches an identifier.
type identifierPolicy interface {
	Allow(identifier string) bool
}

// Allowlist is the set of identifiers issuance is permitted for. An identifier
// is allowed if any configured policy allows it.
type Allowlist struct {
	policies []identifierPolicy
}

var (
	domainLabel = `[a-zA-Z0-9][-a-zA-Z0-9]*[a-zA-Z0-9]`
	tldLabel    = `[a-zA-Z][-a-zA-Z0-9]*[a-zA-Z0-9]`

	hostnameRegex = regexp.MustCompile(`^(` + domainLabel + `\.)+` + tldLabel + `$`)
	labelRegex    = regexp.MustCompile(`^(` + domainLabel + `)?$`)
)

// NewAllowlist builds an allowlist from policy descriptions: exact hostnames,
// wildcard hostnames ("*.example.com", matching a single label), and IP
// addresses or CIDR networks. An unrecognized description is an error.
func NewAllowlist(descriptions []string) (*Allowlist, error) {
	policies := make([]identifierPolicy, 0, len(descriptions))
	for _, desc := range descriptions {
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		policy, err := buildPolicy(desc)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return &Allowlist{policies: policies}, nil
}

func buildPolicy(desc string) (identifierPolicy, error) {
	if prefix, err := netip.ParsePrefix(desc); err == nil {
		return ipPolicy{prefix: prefix}, nil
	}
	if addr, err := netip.ParseAddr(desc); err == nil {
		return ipPolicy{prefix: netip.PrefixFrom(addr, addr.BitLen())}, nil
	}
	if suffix, ok := strings.CutPrefix(desc, "*."); ok {
		if !hostnameRegex.MatchString(suffix) {
			return nil, fmt.Errorf("%w: wildcard policy %q", ErrInvalidDomain, desc)
		}
		return wildcardPolicy{suffix: strings.ToLower(suffix)}, nil
	}
	if hostnameRegex.MatchString(desc) {
		return hostnamePolicy{hostname: strings.ToLower(desc)}, nil
	}
	return nil, fmt.Errorf("%w: policy description %q", ErrInvalidDomain, desc)
}

// Allow reports whether the identifier is permitted.
func (a *Allowlist) Allow(identifier string) bool {
	for _, policy := range a.policies {
		if policy.Allow(identifier) {
			return true
		}
	}
	return false
}

// hostnamePolicy matches a hostname exactly, case-insensitively.
type hostnamePolicy struct {
	hostname string
}

func (p hostnamePolicy) Allow(identifier string) bool {
	return strings.ToLower(identifier) == p.hostname
}

// wildcardPolicy matches one label followed by the configured suffix.
// The literal "*" label is also accepted so wildcard certificates can be
// requested for the suffix itself.
type wildcardPolicy struct {
	suffix string
}

func (p wildcardPolicy) Allow(identifier string) bool {
	prefix, domain, ok := strings.Cut(identifier, ".")
	if !ok {
		return false
	}
	if prefix != "*" && !labelRegex.MatchString(prefix) {
		return false
	}
	return prefix != "" && strings.ToLower(domain) == p.suffix
}

// ipPolicy matches IP address identifiers contained in the configured network.
type ipPolicy struct {
	prefix netip.Prefix
}

func (p ipPolicy) Allow(identifier string) bool {
	if addr, err := netip.ParseAddr(identifier); err == nil {
		return p.prefix.Contains(addr)
	}
	if other, err := netip.ParsePrefix(identifier); err == nil {
		return p.prefix.Overlaps(other)
	}
	return false
}
