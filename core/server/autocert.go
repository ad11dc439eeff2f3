package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// CertificateSource supplies certificates during TLS handshakes. The autocert
// Manager satisfies it.
type CertificateSource interface {
	GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error)
}

// AutoCertServer serves HTTPS with certificates resolved per handshake through
// a CertificateSource, alongside an HTTP listener that redirects to HTTPS.
// Certificates obtained or renewed while the server runs are picked up by new
// handshakes without a restart.
type AutoCertServer struct {
	source CertificateSource
	logger *slog.Logger

	httpAddr        string
	httpsAddr       string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	tlsBase         *tls.Config

	mu          sync.Mutex
	running     bool
	httpServer  *http.Server
	httpsServer *http.Server
}

// AutoCertServerOption configures an AutoCertServer.
type AutoCertServerOption func(*AutoCertServer)

// WithHTTPAddr sets the redirect listener address. Default ":80".
func WithHTTPAddr(addr string) AutoCertServerOption {
	return func(s *AutoCertServer) { s.httpAddr = addr }
}

// WithHTTPSAddr sets the TLS listener address. Default ":443".
func WithHTTPSAddr(addr string) AutoCertServerOption {
	return func(s *AutoCertServer) { s.httpsAddr = addr }
}

// WithServerLogger sets the logger. Defaults to slog.Default.
func WithServerLogger(logger *slog.Logger) AutoCertServerOption {
	return func(s *AutoCertServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeouts overrides the read, write, and idle timeouts.
func WithTimeouts(read, write, idle time.Duration) AutoCertServerOption {
	return func(s *AutoCertServer) {
		s.readTimeout = read
		s.writeTimeout = write
		s.idleTimeout = idle
	}
}

// WithShutdownTimeout bounds graceful shutdown. Default 30s.
func WithShutdownTimeout(d time.Duration) AutoCertServerOption {
	return func(s *AutoCertServer) { s.shutdownTimeout = d }
}

// WithBaseTLSConfig sets the tls.Config the server clones before installing
// its GetCertificate callback. Lets callers tune cipher suites or ALPN.
func WithBaseTLSConfig(cfg *tls.Config) AutoCertServerOption {
	return func(s *AutoCertServer) {
		if cfg != nil {
			s.tlsBase = cfg
		}
	}
}

// NewAutoCertServer creates a server whose TLS handshakes resolve certificates
// through source.
func NewAutoCertServer(source CertificateSource, opts ...AutoCertServerOption) (*AutoCertServer, error) {
	if source == nil {
		return nil, ErrCertificateSourceRequired
	}

	s := &AutoCertServer{
		source:          source,
		logger:          slog.Default(),
		httpAddr:        ":80",
		httpsAddr:       ":443",
		readTimeout:     10 * time.Second,
		writeTimeout:    30 * time.Second,
		idleTimeout:     120 * time.Second,
		shutdownTimeout: 30 * time.Second,
		tlsBase:         defaultTLSConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// defaultTLSConfig returns the baseline handshake parameters.
func defaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
		NextProtos: []string{"h2", "http/1.1"},
	}
}

// Run starts the HTTP redirect listener and the HTTPS listener and blocks
// until the context is canceled or a listener fails. On cancellation both
// listeners are shut down gracefully and Run returns nil.
func (s *AutoCertServer) Run(ctx context.Context, handler http.Handler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	s.running = true

	tlsConfig := s.tlsBase.Clone()
	tlsConfig.GetCertificate = s.source.GetCertificate

	s.httpServer = &http.Server{
		Addr:         s.httpAddr,
		Handler:      http.HandlerFunc(s.redirectHTTPS),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}
	s.httpsServer = &http.Server{
		Addr:         s.httpsAddr,
		Handler:      handler,
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.mu.Unlock()

	errCh := make(chan error, 2)

	go func() {
		s.logger.InfoContext(ctx, "http redirect listener starting", slog.String("addr", s.httpAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http listener: %w", err)
		}
	}()
	go func() {
		s.logger.InfoContext(ctx, "https listener starting", slog.String("addr", s.httpsAddr))
		if err := s.httpsServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("https listener: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
		return err
	}
}

// Shutdown stops both listeners gracefully.
func (s *AutoCertServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpSrv, httpsSrv := s.httpServer, s.httpsServer
	s.running = false
	s.mu.Unlock()

	var errs []error
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http listener: %w", err))
		}
	}
	if httpsSrv != nil {
		if err := httpsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown https listener: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.InfoContext(ctx, "server stopped")
	return nil
}

// redirectHTTPS sends permanent redirects from the HTTP listener to the HTTPS
// origin, preserving path and query.
func (s *AutoCertServer) redirectHTTPS(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		host = h
	}

	target := "https://" + host
	if _, port, err := net.SplitHostPort(s.httpsAddr); err == nil && port != "443" {
		target = "https://" + net.JoinHostPort(host, port)
	}
	target += r.URL.RequestURI()

	http.Redirect(w, r, target, http.StatusMovedPermanently)
}
