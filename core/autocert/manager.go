package autocert

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/autocert/pkg/logger"
)

// Manager orchestrates the certificate lifecycle per hostname: it serves
// cached records to TLS handshakes, starts background renewals when the policy
// says one is due, and blocks a caller only when nothing valid can be served
// (first issuance or an already expired record).
type Manager struct {
	renewal      RenewalConfig
	allowlist    *Allowlist
	store        Store
	coordinator  *coordinator
	checkEvery   time.Duration
	issueTimeout time.Duration

	logger *slog.Logger
	sink   EventSink
	clock  func() time.Time

	// cacheMu guards cache, the in-process mirror of the store. A record that
	// failed to persist stays usable here for the process's lifetime.
	cacheMu sync.RWMutex
	cache   map[string]*CertificateRecord
}

// New creates a Manager. The store and issuer are required capabilities; the
// configuration is captured once and never re-read.
func New(cfg Config, store Store, issuer Issuer, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if issuer == nil {
		return nil, ErrIssuerRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	allowlist, err := NewAllowlist(cfg.AllowIdentifiers)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		renewal:      cfg.renewalConfig(),
		allowlist:    allowlist,
		store:        store,
		checkEvery:   cfg.CheckEvery,
		issueTimeout: cfg.IssueTimeout,
		logger:       slog.Default(),
		clock:        time.Now,
		cache:        make(map[string]*CertificateRecord),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.sink == nil {
		m.sink = slogSink{logger: m.logger}
	}

	m.coordinator = newCoordinator(allowlist, issuer, m.publish, m.sink, m.clock)
	return m, nil
}

// GetCertificate is the TLS handshake hook. Register it as
// tls.Config.GetCertificate; it is safe for concurrent use from many
// handshakes.
func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	ctx := hello.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rec, err := m.CertificateFor(ctx, hello.ServerName, m.clock())
	if err != nil {
		return nil, err
	}
	return rec.TLSCertificate(), nil
}

// CertificateFor returns the best available record for hostname at now.
// A cached record that is due for renewal but still valid is returned
// immediately while a background attempt runs; the caller blocks only when no
// valid record exists.
func (m *Manager) CertificateFor(ctx context.Context, hostname string, now time.Time) (*CertificateRecord, error) {
	hostname, err := normalizeHostname(hostname)
	if err != nil {
		return nil, err
	}

	if !m.allowlist.Allow(hostname) {
		return nil, fmt.Errorf("%w: %s", ErrHostnameNotAllowed, hostname)
	}

	rec := m.cached(hostname)
	if rec == nil {
		rec = m.fromStore(ctx, hostname)
	}

	if rec != nil && !rec.Expired(now) {
		if m.renewal.ShouldRenew(now, rec) {
			// Serve the still-valid record, renew in the background. The
			// coordinator collapses concurrent detections onto one attempt.
			att, joined := m.coordinator.begin(hostname)
			if !joined {
				m.sink.Emit(Event{Type: EventRenewalDue, Hostname: hostname, AttemptID: att.id, At: now})
			}
		}
		return rec, nil
	}

	// Nothing valid to serve: first issuance or expired record. Join the
	// attempt and wait, bounded by the per-caller issue timeout.
	expired := rec != nil
	att, _ := m.coordinator.begin(hostname)

	waitCtx, cancel := context.WithTimeout(ctx, m.issueTimeout)
	defer cancel()

	fresh, err := att.wait(waitCtx)
	if err != nil {
		if expired {
			return nil, fmt.Errorf("%w: %s: %w", ErrCertificateExpired, hostname, err)
		}
		if errors.Is(err, ErrHostnameNotAllowed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrIssuanceFailed, hostname, err)
	}
	return fresh, nil
}

// Hostnames returns every hostname with a known record, in memory or in the
// store. Used by the renewal loop to scan.
func (m *Manager) Hostnames(ctx context.Context) []string {
	seen := make(map[string]struct{})

	m.cacheMu.RLock()
	for hostname := range m.cache {
		seen[hostname] = struct{}{}
	}
	m.cacheMu.RUnlock()

	stored, err := m.store.List(ctx)
	if err != nil {
		m.logger.Warn("listing stored certificates failed", logger.Error(err))
	}
	for _, hostname := range stored {
		seen[hostname] = struct{}{}
	}

	hostnames := make([]string, 0, len(seen))
	for hostname := range seen {
		hostnames = append(hostnames, hostname)
	}
	return hostnames
}

// publish makes a freshly issued record visible: in-memory first, then
// write-through to the store. A store failure is reported, not fatal; the
// record keeps being served from memory and renewal retries persistence.
func (m *Manager) publish(ctx context.Context, rec *CertificateRecord) {
	m.remember(rec)

	if err := m.store.Put(ctx, rec.Hostname, rec.Encode()); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrStoreWriteFailed, rec.Hostname, err)
		m.sink.Emit(Event{Type: EventStoreWriteFailed, Hostname: rec.Hostname, Err: err, At: m.clock()})
		m.logger.Error("persisting certificate failed", logger.Hostname(rec.Hostname), logger.Error(err))
	}
}

func (m *Manager) remember(rec *CertificateRecord) {
	m.cacheMu.Lock()
	m.cache[rec.Hostname] = rec
	m.cacheMu.Unlock()
}

func (m *Manager) cached(hostname string) *CertificateRecord {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()
	return m.cache[hostname]
}

// fromStore loads and caches the stored record for hostname. Read problems
// degrade to a cache miss so a corrupt or unreachable store triggers
// re-issuance instead of a hard failure.
func (m *Manager) fromStore(ctx context.Context, hostname string) *CertificateRecord {
	data, err := m.store.Get(ctx, hostname)
	if err != nil {
		if !errors.Is(err, ErrCertificateNotFound) {
			m.logger.Warn("reading stored certificate failed", logger.Hostname(hostname), logger.Error(err))
		}
		return nil
	}

	rec, err := ParseCertificateRecord(hostname, data)
	if err != nil {
		m.logger.Warn("stored certificate is unusable", logger.Hostname(hostname), logger.Error(err))
		return nil
	}

	m.remember(rec)
	return rec
}

func normalizeHostname(hostname string) (string, error) {
	hostname = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(hostname), "."))
	if hostname == "" {
		return "", ErrInvalidDomain
	}
	return hostname, nil
}
