package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/autocert/core/autocert"
)

// Config holds redis connection settings with environment variable mapping.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	ScanBatchSize  int           `env:"REDIS_SCAN_BATCH_SIZE" envDefault:"1000"`
	KeyPrefix      string        `env:"REDIS_CERT_KEY_PREFIX" envDefault:"autocert:"`
}

// Connect creates a redis client, retrying with exponential backoff, and
// verifies connectivity with a ping before returning it.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if strings.TrimSpace(cfg.ConnectionURL) == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := goredis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToParseRedisConnString, err)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(uint64(cfg.RetryAttempts), retry.NewExponential(cfg.RetryInterval))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRedisNotReady, err)
	}

	return client, nil
}

// Healthcheck returns a probe suitable for readiness endpoints.
func Healthcheck(client *goredis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Store is a redis-backed certificate store. Each hostname maps to one value
// under the configured key prefix; redis SET is atomic per key, so readers
// never observe a partially written bundle.
type Store struct {
	client    *goredis.Client
	prefix    string
	batchSize int
}

// NewStore wraps an existing client. The prefix namespaces certificate keys.
func NewStore(client *goredis.Client, cfg Config) *Store {
	batch := cfg.ScanBatchSize
	if batch <= 0 {
		batch = 1000
	}
	return &Store{
		client:    client,
		prefix:    cfg.KeyPrefix,
		batchSize: batch,
	}
}

func (s *Store) key(hostname string) string {
	return s.prefix + hostname
}

func (s *Store) Get(ctx context.Context, hostname string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(hostname)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: %s", autocert.ErrCertificateNotFound, hostname)
		}
		return nil, fmt.Errorf("read certificate for %s: %w", hostname, err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, hostname string, data []byte) error {
	if err := s.client.Set(ctx, s.key(hostname), data, 0).Err(); err != nil {
		return fmt.Errorf("write certificate for %s: %w", hostname, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, hostname string) error {
	if err := s.client.Del(ctx, s.key(hostname)).Err(); err != nil {
		return fmt.Errorf("delete certificate for %s: %w", hostname, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	var hostnames []string

	iter := s.client.Scan(ctx, 0, s.prefix+"*", int64(s.batchSize)).Iterator()
	for iter.Next(ctx) {
		hostnames = append(hostnames, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return hostnames, nil
}
