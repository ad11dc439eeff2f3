// Package acmeclient issues certificates through an ACME provider using lego.
//
// The Client satisfies the core autocert.Issuer capability: one blocking
// Issue call per hostname, with the account key generated once and the
// registration performed lazily on first use. External Account Binding is
// supported for providers that bind ACME accounts to an external identity.
//
// # Basic Usage
//
//	issuer, err := acmeclient.New(
//		"https://acme.example.com/directory",
//		"ops@example.com",
//		acmeclient.WithEAB(kid, hmacKey),
//		acmeclient.WithHTTP01Address(":5002"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rec, err := issuer.Issue(ctx, "www.example.com")
//
// Domain validation uses the HTTP-01 challenge served by an internal listener;
// point WithHTTP01Address at the port your edge forwards
// /.well-known/acme-challenge/ traffic to.
package acmeclient
