package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/server/handlers"
	"github.com/vyaparitrack/vyaparitrack/internal/server/metrics"
	"github.com/vyaparitrack/vyaparitrack/internal/server/reqctx"
)

// statusWriter records the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// RequestMiddleware adds the client metadata to the request context, logs
// the request, records its metrics and turns panics into 500 responses.
func RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := reqctx.GetClientIP(r)
		ctx := reqctx.WithClientIP(r.Context(), ip)
		ctx = reqctx.WithUserAgent(ctx, r.UserAgent())
		sw := &statusWriter{ResponseWriter: w}
		r2 := r.WithContext(ctx)
		defer func() {
			if v := recover(); v != nil {
				slog.ErrorContext(ctx, "Panic", "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
				if sw.status == 0 {
					handlers.WriteError(ctx, sw, dto.Internal("Internal error"))
				}
			}
			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			// The mux sets the matched pattern on the request it received.
			route := r2.Pattern
			if route == "" {
				route = "unmatched"
			}
			d := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(d.Seconds())
			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "http", "m", r.Method, "p", r.URL.Path, "s", status, "d", d.Round(time.Millisecond), "ip", ip)
		}()
		next.ServeHTTP(sw, r2)
	})
}
