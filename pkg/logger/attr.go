package logger

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strconv"
	"time"
)

// Group nests attributes under a single key.
func Group(key string, attrs ...slog.Attr) slog.Attr {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return slog.Group(key, args...)
}

// Error attaches an error under the conventional "error" key. A nil error
// yields an empty attribute that slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple errors, skipping nil entries.
func Errors(errs ...error) slog.Attr {
	attrs := make([]slog.Attr, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		attrs = append(attrs, slog.Any(strconv.Itoa(len(attrs)), err))
	}
	if len(attrs) == 0 {
		return slog.Attr{}
	}
	return Group("errors", attrs...)
}

// Duration records an operation duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed records the time since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Component names the subsystem a log line originates from.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event names a lifecycle event.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Hostname records the certificate hostname a log line concerns.
func Hostname(hostname string) slog.Attr {
	if hostname == "" {
		return slog.Attr{}
	}
	return slog.String("hostname", hostname)
}

// AttemptID records the issuance attempt correlation id.
func AttemptID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("attempt_id", id)
}

// Count records a named counter.
func Count(key string, n int) slog.Attr {
	return slog.Int64(key, int64(n))
}

// RetryCount records how many retries an operation has used.
func RetryCount(n int) slog.Attr {
	return slog.Int64("retry_count", int64(n))
}

// Stack captures the current goroutine stack trace.
func Stack() slog.Attr {
	return slog.String("stack", string(debug.Stack()))
}

// Caller records the file and line of the call site.
func Caller() slog.Attr {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return slog.Attr{}
	}
	return slog.String("caller", fmt.Sprintf("%s:%d", file, line))
}
