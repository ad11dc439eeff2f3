package autocert

import (
	"context"
	"sync"
)

// Store is the durable byte-oriented mapping from hostname to the most recent
// certificate bundle. Implementations must support concurrent readers and make
// each write atomic per hostname; cross-hostname transactionality is not
// required.
type Store interface {
	// Get returns the stored bundle for hostname, or ErrCertificateNotFound.
	Get(ctx context.Context, hostname string) ([]byte, error)

	// Put stores the bundle for hostname, replacing any previous one.
	Put(ctx context.Context, hostname string, data []byte) error

	// Delete removes the bundle for hostname. Deleting a missing key is not an error.
	Delete(ctx context.Context, hostname string) error

	// List returns the hostnames that currently have a stored bundle.
	List(ctx context.Context) ([]string, error)
}

// MemoryStore is a process-local Store. It is the default for tests and for
// deployments that accept re-issuance on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, hostname string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.bundles[hostname]
	if !ok {
		return nil, ErrCertificateNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Put(ctx context.Context, hostname string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bundles[hostname] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, hostname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bundles, hostname)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hostnames := make([]string, 0, len(s.bundles))
	for hostname := range s.bundles {
		hostnames = append(hostnames, hostname)
	}
	return hostnames, nil
}
