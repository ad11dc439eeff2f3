package autocert

import (
	"log/slog"
	"time"
)

// Option configures a Manager during initialization.
type Option func(*Manager)

// WithLogger sets the structured logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEventSink sets the sink receiving lifecycle events. By default events
// are logged through the manager's logger.
func WithEventSink(sink EventSink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithClock injects the time source. Primarily useful for testing renewal
// decisions against fixed instants.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithIssueTimeout overrides the per-caller wait bound for blocking issuance.
func WithIssueTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.issueTimeout = timeout
	}
}
