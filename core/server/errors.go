package server

import "errors"

var (
	// ErrCertificateSourceRequired is returned when no certificate source is provided.
	ErrCertificateSourceRequired = errors.New("certificate source is required")

	// ErrServerAlreadyRunning is returned when Run is called on a running server.
	ErrServerAlreadyRunning = errors.New("server is already running")

	// ErrServerClosed is returned after a clean shutdown.
	ErrServerClosed = errors.New("server closed")
)
