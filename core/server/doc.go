// Package server runs an HTTPS endpoint whose certificates are resolved per
// TLS handshake through a CertificateSource, paired with an HTTP listener
// that redirects to HTTPS.
//
// The autocert Manager satisfies CertificateSource, so certificates issued or
// renewed while the server runs take effect on the next handshake without a
// restart.
//
// # Basic Usage
//
//	manager, err := autocert.New(cfg, store, issuer)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	srv, err := server.NewAutoCertServer(manager)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go manager.Run(ctx)
//	if err := srv.Run(ctx, mux); err != nil {
//		log.Fatal(err)
//	}
//
// Run blocks until the context is canceled, then shuts both listeners down
// gracefully within the configured shutdown timeout.
package server
