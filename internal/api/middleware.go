package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"georefgo/pkg/logging"
	"georefgo/pkg/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// WithLogging writes every request to the request log and records its
// duration by route pattern. m may be nil.
func WithLogging(next http.Handler, m *metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		d := time.Since(start)
		m.ObserveHTTP(route, rec.status, d)
		if logging.RequestLogger != nil {
			logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", d)
		}
	})
}
