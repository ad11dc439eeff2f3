package autocert_test

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autocert/core/autocert"
)

func testManagerConfig() autocert.Config {
	return autocert.Config{
		AllowIdentifiers:   []string{"example.com", "*.example.com"},
		RenewBeforeSeconds: 14 * 86400,
		CheckEvery:         time.Hour,
		IssueTimeout:       5 * time.Second,
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	issuer := &mockIssuer{}
	store := newMockStore()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		m, err := autocert.New(testManagerConfig(), store, issuer)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})

	t.Run("missing store", func(t *testing.T) {
		t.Parallel()

		m, err := autocert.New(testManagerConfig(), nil, issuer)
		assert.ErrorIs(t, err, autocert.ErrStoreRequired)
		assert.Nil(t, m)
	})

	t.Run("missing issuer", func(t *testing.T) {
		t.Parallel()

		m, err := autocert.New(testManagerConfig(), store, nil)
		assert.ErrorIs(t, err, autocert.ErrIssuerRequired)
		assert.Nil(t, m)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		m, err := autocert.New(autocert.Config{}, store, issuer)
		assert.ErrorIs(t, err, autocert.ErrAllowIdentifiersRequired)
		assert.Nil(t, m)
	})

	t.Run("invalid allowlist entry", func(t *testing.T) {
		t.Parallel()

		cfg := testManagerConfig()
		cfg.AllowIdentifiers = []string{"not a hostname"}

		m, err := autocert.New(cfg, store, issuer)
		assert.ErrorIs(t, err, autocert.ErrInvalidDomain)
		assert.Nil(t, m)
	})
}

func TestCertificateForNotAllowed(t *testing.T) {
	t.Parallel()

	issuer := &mockIssuer{}
	m, err := autocert.New(testManagerConfig(), newMockStore(), issuer)
	require.NoError(t, err)

	_, err = m.CertificateFor(context.Background(), "evil.com", time.Now())
	assert.ErrorIs(t, err, autocert.ErrHostnameNotAllowed)
	assert.Equal(t, 0, issuer.CallCount())
}

func TestCertificateForInvalidHostname(t *testing.T) {
	t.Parallel()

	issuer := &mockIssuer{}
	m, err := autocert.New(testManagerConfig(), newMockStore(), issuer)
	require.NoError(t, err)

	for _, hostname := range []string{"", "   ", "."} {
		_, err := m.CertificateFor(context.Background(), hostname, time.Now())
		assert.ErrorIs(t, err, autocert.ErrInvalidDomain, "hostname %q", hostname)
	}
	assert.Equal(t, 0, issuer.CallCount())
}

func TestCertificateForFirstIssuance(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))

	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			return fresh, nil
		},
	}
	store := newMockStore()
	sink := &collectSink{}

	m, err := autocert.New(testManagerConfig(), store, issuer,
		autocert.WithEventSink(sink),
		autocert.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	rec, err := m.CertificateFor(context.Background(), "example.com", now)
	require.NoError(t, err)

	assert.True(t, rec.NotAfter.Equal(fresh.NotAfter))
	assert.Equal(t, 1, issuer.CallCount())
	assert.Equal(t, fresh.Encode(), store.stored("example.com"))
	assert.Len(t, sink.ofType(autocert.EventIssuanceStarted), 1)
	assert.Len(t, sink.ofType(autocert.EventIssuanceSucceeded), 1)
}

func TestCertificateForNormalizesHostname(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))

	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			assert.Equal(t, "example.com", hostname)
			return fresh, nil
		},
	}

	m, err := autocert.New(testManagerConfig(), newMockStore(), issuer)
	require.NoError(t, err)

	rec, err := m.CertificateFor(context.Background(), "EXAMPLE.COM.", now)
	require.NoError(t, err)
	assert.Equal(t, "example.com", rec.Hostname)
}

func TestCertificateForCollapsesConcurrentRequests(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))

	gate := make(chan struct{})
	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			<-gate
			return fresh, nil
		},
	}

	m, err := autocert.New(testManagerConfig(), newMockStore(), issuer)
	require.NoError(t, err)

	const callers = 50

	var wg sync.WaitGroup
	results := make([]*autocert.CertificateRecord, callers)
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.CertificateFor(context.Background(), "example.com", now)
		}()
	}

	waitFor(t, time.Second, func() bool { return issuer.CallCount() == 1 })
	close(gate)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.True(t, results[i].NotAfter.Equal(fresh.NotAfter))
	}
	assert.Equal(t, 1, issuer.CallCount())
}

func TestCertificateForFailureNotCached(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))
	boom := errors.New("acme unavailable")

	issuer := &mockIssuer{}
	issuer.issueFunc = func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
		if issuer.CallCount() == 1 {
			return nil, boom
		}
		return fresh, nil
	}

	m, err := autocert.New(testManagerConfig(), newMockStore(), issuer)
	require.NoError(t, err)

	_, err = m.CertificateFor(context.Background(), "example.com", now)
	assert.ErrorIs(t, err, autocert.ErrIssuanceFailed)
	assert.ErrorIs(t, err, boom)

	rec, err := m.CertificateFor(context.Background(), "example.com", now)
	require.NoError(t, err)
	assert.True(t, rec.NotAfter.Equal(fresh.NotAfter))
	assert.Equal(t, 2, issuer.CallCount())
}

func TestCertificateForServesStaleWhileRenewing(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Valid for another 5 days, renewal threshold is 14 days: due but servable.
	stale := newTestRecord(t, "example.com", now.Add(-20*24*time.Hour), now.Add(5*24*time.Hour))
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))

	gate := make(chan struct{})
	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			<-gate
			return fresh, nil
		},
	}

	store := newMockStore()
	require.NoError(t, store.Put(context.Background(), "example.com", stale.Encode()))

	sink := &collectSink{}
	m, err := autocert.New(testManagerConfig(), store, issuer,
		autocert.WithEventSink(sink),
		autocert.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	// Every caller gets the stale record immediately; one renewal runs behind.
	for range 5 {
		rec, err := m.CertificateFor(context.Background(), "example.com", now)
		require.NoError(t, err)
		assert.True(t, rec.NotAfter.Equal(stale.NotAfter))
	}

	waitFor(t, time.Second, func() bool { return issuer.CallCount() == 1 })
	assert.Len(t, sink.ofType(autocert.EventRenewalDue), 1)

	close(gate)
	waitFor(t, time.Second, func() bool {
		return string(store.stored("example.com")) == string(fresh.Encode())
	})

	rec, err := m.CertificateFor(context.Background(), "example.com", now)
	require.NoError(t, err)
	assert.True(t, rec.NotAfter.Equal(fresh.NotAfter))
	assert.Equal(t, 1, issuer.CallCount())
}

func TestCertificateForIdempotentWhenFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))

	issuer := &mockIssuer{}
	store := newMockStore()
	require.NoError(t, store.Put(context.Background(), "example.com", fresh.Encode()))

	m, err := autocert.New(testManagerConfig(), store, issuer,
		autocert.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	for range 10 {
		rec, err := m.CertificateFor(context.Background(), "example.com", now)
		require.NoError(t, err)
		assert.True(t, rec.NotAfter.Equal(fresh.NotAfter))
	}
	assert.Equal(t, 0, issuer.CallCount())
}

func TestCertificateForExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := newTestRecord(t, "example.com", now.Add(-90*24*time.Hour), now.Add(-24*time.Hour))

	t.Run("issuance failure surfaces as expired", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("acme unavailable")
		issuer := &mockIssuer{
			issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
				return nil, boom
			},
		}

		store := newMockStore()
		require.NoError(t, store.Put(context.Background(), "example.com", expired.Encode()))

		m, err := autocert.New(testManagerConfig(), store, issuer)
		require.NoError(t, err)

		_, err = m.CertificateFor(context.Background(), "example.com", now)
		assert.ErrorIs(t, err, autocert.ErrCertificateExpired)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("caller blocks for the replacement", func(t *testing.T) {
		t.Parallel()

		fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))
		issuer := &mockIssuer{
			issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
				return fresh, nil
			},
		}

		store := newMockStore()
		require.NoError(t, store.Put(context.Background(), "example.com", expired.Encode()))

		m, err := autocert.New(testManagerConfig(), store, issuer)
		require.NoError(t, err)

		rec, err := m.CertificateFor(context.Background(), "example.com", now)
		require.NoError(t, err)
		assert.True(t, rec.NotAfter.Equal(fresh.NotAfter))
		assert.Equal(t, 1, issuer.CallCount())
	})
}

func TestCertificateForStoreWriteFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))

	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			return fresh, nil
		},
	}

	store := newMockStore()
	store.putFunc = func(ctx context.Context, hostname string, data []byte) error {
		return errors.New("disk full")
	}

	sink := &collectSink{}
	m, err := autocert.New(testManagerConfig(), store, issuer,
		autocert.WithEventSink(sink),
		autocert.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	// Issuance still succeeds for the caller.
	rec, err := m.CertificateFor(context.Background(), "example.com", now)
	require.NoError(t, err)
	assert.True(t, rec.NotAfter.Equal(fresh.NotAfter))
	assert.Len(t, sink.ofType(autocert.EventStoreWriteFailed), 1)

	// The record survives in memory, no re-issuance needed.
	rec, err = m.CertificateFor(context.Background(), "example.com", now)
	require.NoError(t, err)
	assert.True(t, rec.NotAfter.Equal(fresh.NotAfter))
	assert.Equal(t, 1, issuer.CallCount())
}

func TestCertificateForTimeout(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			<-release
			return nil, errors.New("released")
		},
	}

	m, err := autocert.New(testManagerConfig(), newMockStore(), issuer,
		autocert.WithIssueTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = m.CertificateFor(context.Background(), "example.com", now)
	assert.ErrorIs(t, err, autocert.ErrIssuanceFailed)
	assert.ErrorIs(t, err, autocert.ErrIssuanceTimeout)

	// The attempt outlives the waiter; a second caller joins it.
	_, err = m.CertificateFor(context.Background(), "example.com", now)
	assert.ErrorIs(t, err, autocert.ErrIssuanceTimeout)
	assert.Equal(t, 1, issuer.CallCount())
}

func TestGetCertificate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "example.com", now, now.Add(90*24*time.Hour))

	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			return fresh, nil
		},
	}

	m, err := autocert.New(testManagerConfig(), newMockStore(), issuer,
		autocert.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	t.Run("serves the handshake", func(t *testing.T) {
		cert, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"})
		require.NoError(t, err)
		require.NotNil(t, cert)
		assert.NotNil(t, cert.Leaf)
	})

	t.Run("rejects unlisted server name", func(t *testing.T) {
		cert, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: "evil.com"})
		assert.ErrorIs(t, err, autocert.ErrHostnameNotAllowed)
		assert.Nil(t, cert)
	})
}

func TestHostnames(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := newTestRecord(t, "b.example.com", now, now.Add(90*24*time.Hour))

	issuer := &mockIssuer{
		issueFunc: func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
			return fresh, nil
		},
	}

	store := newMockStore()
	stored := newTestRecord(t, "a.example.com", now, now.Add(90*24*time.Hour))
	require.NoError(t, store.Put(context.Background(), "a.example.com", stored.Encode()))

	m, err := autocert.New(testManagerConfig(), store, issuer,
		autocert.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = m.CertificateFor(context.Background(), "b.example.com", now)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.example.com", "b.example.com"}, m.Hostnames(context.Background()))
}
