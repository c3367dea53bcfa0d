package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceOn atomic.Bool

// SetTrace turns per-frame debug chatter on or off.
func SetTrace(on bool) { traceOn.Store(on) }

// Trace logs at DEBUG when tracing is on.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if traceOn.Load() {
		logger.Debug(msg, args...)
	}
}
