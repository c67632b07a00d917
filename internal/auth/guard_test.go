package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

func request(setup func(*http.Request)) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	if setup != nil {
		setup(r)
	}
	return r
}

func withToken(token string) func(*http.Request) {
	return func(r *http.Request) {
		q := r.URL.Query()
		q.Set(TokenParam, token)
		r.URL.RawQuery = q.Encode()
	}
}

func withBasic(user, pass string) func(*http.Request) {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}

func TestGuardCheck(t *testing.T) {
	g := NewGuard(Credentials{Username: "jim", Password: "s3cret", Token: "tok-123"})

	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantAllow  bool
		wantMethod string
	}{
		{"valid token", withToken("tok-123"), true, MethodToken},
		{"wrong token", withToken("tok-124"), false, MethodToken},
		{"token prefix", withToken("tok-12"), false, MethodToken},
		{"valid basic", withBasic("jim", "s3cret"), true, MethodBasic},
		{"wrong password", withBasic("jim", "nope"), false, MethodBasic},
		{"wrong user", withBasic("bob", "s3cret"), false, MethodBasic},
		{"password with colon", withBasic("jim", "s3cret:extra"), false, MethodBasic},
		{"no credentials", nil, false, MethodNone},
		{"bad token, good basic", func(r *http.Request) {
			withToken("wrong")(r)
			withBasic("jim", "s3cret")(r)
		}, true, MethodBasic},
		{"malformed header", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic !!!not-base64")
		}, false, MethodNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := request(tt.setup)
			method, err := g.Check(r)

			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantAllow, err == nil)
			assert.Equal(t, tt.wantAllow, g.Allow(r))
			if err != nil {
				assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))
			}
		})
	}
}

func TestGuardEmptyTokenNeverMatches(t *testing.T) {
	g := NewGuard(Credentials{Username: "jim", Password: "s3cret"})

	r := httptest.NewRequest(http.MethodGet, "/?token=", nil)
	assert.False(t, g.Allow(r))
}

func TestGuardEmptyPasswordNeverMatches(t *testing.T) {
	g := NewGuard(Credentials{Username: "jim", Token: "tok"})
	assert.False(t, g.Allow(request(withBasic("jim", ""))))
}

func TestGuardBcryptPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	g := NewGuard(Credentials{Username: "jim", Password: string(hash), Token: "tok"})

	assert.True(t, g.Allow(request(withBasic("jim", "s3cret"))))
	assert.False(t, g.Allow(request(withBasic("jim", string(hash)))), "the hash itself is not the password")
	assert.False(t, g.Allow(request(withBasic("jim", "wrong"))))
}

func TestGuardDollarTwoPlaintext(t *testing.T) {
	// Looks like a hash prefix but isn't one; compared verbatim.
	g := NewGuard(Credentials{Username: "jim", Password: "$2cheap"})
	assert.True(t, g.Allow(request(withBasic("jim", "$2cheap"))))
}

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
