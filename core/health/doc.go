// Package health provides liveness and readiness probe handlers.
//
// Liveness answers as long as the process runs. Readiness additionally runs
// dependency probes, such as the redis certificate store healthcheck, and
// returns 503 when any fails.
package health
