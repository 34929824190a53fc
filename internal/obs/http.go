package obs

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SessionHeader names the request header a tagged browser session sends with
// every request, carrying its session id.
const SessionHeader = "X-E2E-Session"

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// AccessLog logs one http_access line per request. A request carrying
// SessionHeader gets that session id in its context, so handler logs and
// the access line join the scenario that drove the browser. Server errors
// log at warn, everything else at debug.
func AccessLog(pkg string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
			r = r.WithContext(WithSessionID(r.Context(), id))
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		level := slog.LevelDebug
		if sw.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		From(r.Context()).With("pkg", pkg).Log(r.Context(), level, "http_access",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"dur_ms", float64(time.Since(start).Microseconds())/1000,
			"resp_bytes", sw.bytes,
		)
	})
}
