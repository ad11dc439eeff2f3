package autocert

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/autocert/pkg/logger"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventIssuanceStarted   EventType = "issuance_started"
	EventIssuanceSucceeded EventType = "issuance_succeeded"
	EventIssuanceFailed    EventType = "issuance_failed"
	EventRenewalDue        EventType = "renewal_due"
	EventStoreWriteFailed  EventType = "store_write_failed"
)

// Event is a structured observability record. Events are one-directional:
// consuming them never affects manager behavior.
type Event struct {
	Type      EventType
	Hostname  string
	AttemptID string
	Err       error
	At        time.Time
}

// EventSink receives lifecycle events. Implementations must be safe for
// concurrent use and must not block: Emit is called from handshake paths.
type EventSink interface {
	Emit(event Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event Event)

// Emit calls f.
func (f EventSinkFunc) Emit(event Event) { f(event) }

// slogSink logs events through a structured logger. It is the default sink.
type slogSink struct {
	logger *slog.Logger
}

func (s slogSink) Emit(event Event) {
	attrs := []any{
		logger.Event(string(event.Type)),
		logger.Hostname(event.Hostname),
		logger.AttemptID(event.AttemptID),
	}

	switch event.Type {
	case EventIssuanceFailed, EventStoreWriteFailed:
		attrs = append(attrs, logger.Error(event.Err))
		s.logger.Warn("certificate lifecycle event", attrs...)
	default:
		s.logger.Info("certificate lifecycle event", attrs...)
	}
}
