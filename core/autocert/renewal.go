package autocert

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/autocert/pkg/logger"
)

// Run scans all known hostnames on the configured interval and funnels each
// one through CertificateFor, so proactive renewal shares the exact code path
// of a handshake-triggered lookup. Run blocks until ctx is cancelled; in-flight
// issuance attempts are left to finish on their own.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.checkEvery)
	defer ticker.Stop()

	m.logger.Info("certificate renewal loop started", logger.Component("renewal_loop"), slog.Duration("check_every", m.checkEvery))

	for {
		select {
		case <-ticker.C:
			m.checkAll(ctx)
		case <-ctx.Done():
			m.logger.Info("certificate renewal loop stopped", logger.Component("renewal_loop"))
			return nil
		}
	}
}

// checkAll runs one renewal scan. A failure for one hostname never halts the
// scan of the others.
func (m *Manager) checkAll(ctx context.Context) {
	for _, hostname := range m.Hostnames(ctx) {
		if ctx.Err() != nil {
			return
		}
		if _, err := m.CertificateFor(ctx, hostname, m.clock()); err != nil {
			m.logger.Warn("renewal check failed", logger.Hostname(hostname), logger.Error(err))
		}
	}
}
