package auth

import (
	"encoding/json"
	"net/http"

	"github.com/felixgeelhaar/auditd/internal/log"
	"github.com/felixgeelhaar/auditd/internal/metrics"
)

// deniedMessage is the body of every 401.
const deniedMessage = "Toegang vereist authenticatie."

// Middleware wraps handlers with a Guard.
type Middleware struct {
	guard   *Guard
	logger  *log.Logger
	metrics *metrics.Metrics
}

// NewMiddleware creates the auth middleware. logger and m may be nil.
func NewMiddleware(guard *Guard, logger *log.Logger, m *metrics.Metrics) *Middleware {
	if logger == nil {
		logger = log.Discard()
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Middleware{guard: guard, logger: logger, metrics: m}
}

// RequireAuth rejects requests without valid credentials with 401 and a Basic
// challenge. Nothing downstream runs for a denied request.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, err := m.guard.Check(r)
		if err != nil {
			m.metrics.AuthDenied.WithLabelValues(method).Inc()
			if method != MethodNone {
				m.logger.Warn("rejected credentials", "method", method, "path", r.URL.Path, "remote", r.RemoteAddr)
			}
			writeAuthError(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": deniedMessage})
}
