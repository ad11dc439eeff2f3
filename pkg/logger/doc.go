// Package logger provides slog attribute helpers with consistent keys for the
// certificate lifecycle: errors, hostnames, attempt ids, timings. Helpers
// return an empty attribute for zero values, which slog drops from output.
//
//	logger.Warn("renewal check failed",
//		logger.Hostname(hostname),
//		logger.Error(err),
//	)
package logger
