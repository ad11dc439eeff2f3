// Package redis provides a redis-backed certificate store for deployments
// where multiple instances share one certificate cache.
//
// Connection establishment validates the URL, retries with exponential
// backoff, and verifies connectivity with a ping before returning the client.
// Both redis:// and rediss:// (TLS) URL schemes are supported.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	store := redis.NewStore(client, cfg)
//	manager, err := autocert.New(managerCfg, store, issuer)
//
// Certificate bundles live under the configured key prefix; listings use SCAN
// so large key spaces never block the server.
package redis
