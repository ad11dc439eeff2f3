// Package autocert manages the lifecycle of ACME-issued X.509 certificates on
// behalf of a TLS-terminating server: it decides per hostname whether a cached
// certificate is usable, when renewal should begin, collapses concurrent
// issuance requests onto a single ACME exchange, and publishes new
// certificates to the handshake without a process restart.
//
// # Types
//
//   - Manager: the orchestrator, exposing the tls.Config.GetCertificate hook
//   - CertificateRecord: immutable certificate bundle for one hostname
//   - RenewalConfig: pure renewal-instant policy
//   - Allowlist: identifier policies (hostname, wildcard, IP/CIDR)
//   - Store: durable hostname-to-bundle mapping (consumed capability)
//   - Issuer: the ACME exchange (consumed capability)
//
// # Behavior
//
// A handshake blocks only when no valid certificate exists for the requested
// name: on first issuance and after expiry. In every other case the cached
// record is returned immediately; when the renewal policy flags it as due, a
// background attempt is started and the next lookup observes the new record.
// At most one ACME exchange runs per hostname regardless of request
// concurrency; a waiter's timeout never cancels the shared attempt.
//
// # Basic Usage
//
//	store := autocert.NewMemoryStore()
//	issuer, err := acmeclient.New(cfg.DirectoryURL, cfg.Contact,
//		acmeclient.WithEAB(cfg.EABKeyID, cfg.EABHMACKey))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manager, err := autocert.New(cfg, store, issuer)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go manager.Run(ctx) // proactive renewal
//
//	server := &http.Server{
//		Addr:      ":443",
//		TLSConfig: &tls.Config{GetCertificate: manager.GetCertificate},
//	}
//
// # Errors
//
//   - ErrHostnameNotAllowed: name outside the identifier allowlist (permanent)
//   - ErrIssuanceFailed: transient ACME failure, retried on the next request
//   - ErrCertificateExpired: blocking renewal failed for an expired record
//   - ErrStoreWriteFailed: persistence failed; the record is still served
package autocert
