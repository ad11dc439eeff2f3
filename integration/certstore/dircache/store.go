package dircache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	xautocert "golang.org/x/crypto/acme/autocert"

	"github.com/dmitrymomot/autocert/core/autocert"
)

const (
	// accountKeyMarker marks autocert account key files in the cache directory.
	accountKeyMarker = "+"
	// metadataMarker marks autocert metadata files in the cache directory.
	metadataMarker = "_"
)

// Store is a directory-backed certificate store. Reads and writes go through
// autocert.DirCache, which writes each entry atomically via a temp file and
// rename, so a reader never observes a partially written bundle.
type Store struct {
	dir   string
	cache xautocert.DirCache
}

// New creates the directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("certificate directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create certificate directory: %w", err)
	}
	return &Store{dir: dir, cache: xautocert.DirCache(dir)}, nil
}

func (s *Store) Get(ctx context.Context, hostname string) ([]byte, error) {
	data, err := s.cache.Get(ctx, hostname)
	if err != nil {
		if errors.Is(err, xautocert.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", autocert.ErrCertificateNotFound, hostname)
		}
		return nil, fmt.Errorf("read certificate for %s: %w", hostname, err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, hostname string, data []byte) error {
	if err := s.cache.Put(ctx, hostname, data); err != nil {
		return fmt.Errorf("write certificate for %s: %w", hostname, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, hostname string) error {
	if err := s.cache.Delete(ctx, hostname); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete certificate for %s: %w", hostname, err)
	}
	return nil
}

// List returns the hostnames with a stored bundle, excluding account key and
// metadata entries the cache keeps alongside certificates.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	var hostnames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "" || strings.Contains(name, accountKeyMarker) || strings.Contains(name, metadataMarker) {
			continue
		}
		if strings.HasSuffix(name, ".tmp") {
			continue
		}
		hostnames = append(hostnames, name)
	}
	return hostnames, nil
}

// Dir returns the storage directory path.
func (s *Store) Dir() string {
	return s.dir
}
