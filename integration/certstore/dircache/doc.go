// Package dircache provides a directory-backed certificate store.
//
// Each hostname maps to one file in the configured directory, written
// atomically (temp file plus rename) through autocert's DirCache, so
// concurrent readers never see a partially written bundle. Account key and
// metadata files the cache keeps alongside certificates are excluded from
// listings.
//
//	store, err := dircache.New("/var/cache/certs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager, err := autocert.New(cfg, store, issuer)
package dircache
