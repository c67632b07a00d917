package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/auditd/internal/metrics"
)

func TestRequireAuth(t *testing.T) {
	m := metrics.Discard()
	mw := NewMiddleware(NewGuard(Credentials{Username: "jim", Password: "s3cret", Token: "tok"}), nil, m)

	called := 0
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request(withBasic("jim", "s3cret")))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 1, called)
	})

	t.Run("denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request(withBasic("jim", "wrong")))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, `Basic realm="SEO Dashboard"`, rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Toegang vereist authenticatie.", body["error"])

		assert.Equal(t, 1, called, "handler must not run for a denied request")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthDenied.WithLabelValues(MethodBasic)))
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request(nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthDenied.WithLabelValues(MethodNone)))
	})
}
