package autocert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// attempt is a single in-flight issuance exchange for one hostname. It is
// resolved exactly once by its driver goroutine; the result is broadcast to
// every waiter by closing done.
type attempt struct {
	id        string
	hostname  string
	startedAt time.Time
	done      chan struct{}

	// Written by the driver before done is closed, read-only afterwards.
	record *CertificateRecord
	err    error
}

// wait blocks until the attempt resolves or ctx expires. A waiter's timeout is
// local: the attempt keeps running for the remaining waiters.
func (a *attempt) wait(ctx context.Context) (*CertificateRecord, error) {
	select {
	case <-a.done:
		return a.record, a.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrIssuanceTimeout, a.hostname)
		}
		return nil, ctx.Err()
	}
}

// coordinator collapses concurrent issuance requests for the same hostname
// onto a single ACME exchange. The attempt table is the single source of
// truth: admission is atomic under one mutex, so at most one exchange runs per
// hostname at any time. Distinct hostnames proceed fully independently.
type coordinator struct {
	mu       sync.Mutex
	attempts map[string]*attempt

	allowlist *Allowlist
	issuer    Issuer
	publish   func(ctx context.Context, rec *CertificateRecord)
	sink      EventSink
	clock     func() time.Time
}

func newCoordinator(allowlist *Allowlist, issuer Issuer, publish func(context.Context, *CertificateRecord), sink EventSink, clock func() time.Time) *coordinator {
	return &coordinator{
		attempts:  make(map[string]*attempt),
		allowlist: allowlist,
		issuer:    issuer,
		publish:   publish,
		sink:      sink,
		clock:     clock,
	}
}

// begin returns the in-flight attempt for hostname, creating one and becoming
// its sole driver if none exists. The second return value reports whether an
// existing attempt was joined.
func (c *coordinator) begin(hostname string) (*attempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if att, ok := c.attempts[hostname]; ok {
		return att, true
	}

	att := &attempt{
		id:        uuid.NewString(),
		hostname:  hostname,
		startedAt: c.clock(),
		done:      make(chan struct{}),
	}
	c.attempts[hostname] = att
	go c.drive(att)
	return att, false
}

// inFlight reports whether an attempt is currently running for hostname.
func (c *coordinator) inFlight(hostname string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.attempts[hostname]
	return ok
}

// drive performs the exchange and resolves the attempt. It runs on a
// background context: waiters come and go, the exchange finishes on its own.
// Once resolved the attempt is removed from the table, never cached, so the
// next renewal starts fresh.
func (c *coordinator) drive(att *attempt) {
	defer func() {
		c.mu.Lock()
		delete(c.attempts, att.hostname)
		c.mu.Unlock()
		close(att.done)
	}()

	c.sink.Emit(Event{Type: EventIssuanceStarted, Hostname: att.hostname, AttemptID: att.id, At: c.clock()})

	if !c.allowlist.Allow(att.hostname) {
		att.err = fmt.Errorf("%w: %s", ErrHostnameNotAllowed, att.hostname)
		c.sink.Emit(Event{Type: EventIssuanceFailed, Hostname: att.hostname, AttemptID: att.id, Err: att.err, At: c.clock()})
		return
	}

	ctx := context.Background()
	rec, err := c.issuer.Issue(ctx, att.hostname)
	if err != nil {
		att.err = err
		c.sink.Emit(Event{Type: EventIssuanceFailed, Hostname: att.hostname, AttemptID: att.id, Err: err, At: c.clock()})
		return
	}

	c.publish(ctx, rec)
	att.record = rec
	c.sink.Emit(Event{Type: EventIssuanceSucceeded, Hostname: att.hostname, AttemptID: att.id, At: c.clock()})
}
