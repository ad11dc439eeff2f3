package autocert_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autocert/core/autocert"
)

// generateTestCertificate creates a valid self-signed certificate for testing
// with the given validity window.
func generateTestCertificate(t *testing.T, hostname string, notBefore, notAfter time.Time) (certPEM, keyPEM []byte) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: hostname,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{hostname},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privDER,
	})
	return certPEM, keyPEM
}

// newTestRecord builds a CertificateRecord backed by a real self-signed
// certificate valid for the given window.
func newTestRecord(t *testing.T, hostname string, notBefore, notAfter time.Time) *autocert.CertificateRecord {
	t.Helper()

	certPEM, keyPEM := generateTestCertificate(t, hostname, notBefore, notAfter)
	rec, err := autocert.NewCertificateRecord(hostname, certPEM, keyPEM, notBefore)
	require.NoError(t, err)
	return rec
}

// mockIssuer is a test implementation of autocert.Issuer.
type mockIssuer struct {
	mu        sync.Mutex
	issueFunc func(ctx context.Context, hostname string) (*autocert.CertificateRecord, error)
	callCount int
}

func (m *mockIssuer) Issue(ctx context.Context, hostname string) (*autocert.CertificateRecord, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.issueFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, hostname)
	}
	return nil, context.Canceled
}

func (m *mockIssuer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// mockStore is a test implementation of autocert.Store with overridable
// operations backed by an in-memory map.
type mockStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getFunc func(ctx context.Context, hostname string) ([]byte, error)
	putFunc func(ctx context.Context, hostname string, data []byte) error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(ctx context.Context, hostname string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getFunc != nil {
		return m.getFunc(ctx, hostname)
	}

	data, ok := m.data[hostname]
	if !ok {
		return nil, autocert.ErrCertificateNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *mockStore) Put(ctx context.Context, hostname string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putFunc != nil {
		return m.putFunc(ctx, hostname, data)
	}

	m.data[hostname] = append([]byte(nil), data...)
	return nil
}

func (m *mockStore) Delete(ctx context.Context, hostname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, hostname)
	return nil
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hostnames := make([]string, 0, len(m.data))
	for hostname := range m.data {
		hostnames = append(hostnames, hostname)
	}
	return hostnames, nil
}

func (m *mockStore) stored(hostname string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[hostname]
}

// collectSink records every emitted event for later assertions.
type collectSink struct {
	mu     sync.Mutex
	events []autocert.Event
}

func (s *collectSink) Emit(event autocert.Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *collectSink) ofType(eventType autocert.EventType) []autocert.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []autocert.Event
	for _, event := range s.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
