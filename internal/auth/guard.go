// Package auth guards the dashboard with a per-process capability token or
// HTTP Basic credentials.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

// Realm is announced in the Basic challenge.
const Realm = "SEO Dashboard"

// TokenParam is the query parameter that carries the capability token.
const TokenParam = "token"

// Credential methods, as reported by Check and counted in metrics
const (
	MethodToken = "token"
	MethodBasic = "basic"
	MethodNone  = "none"
)

// Credentials are the secrets a request may present.
type Credentials struct {
	Username string
	// Password is compared verbatim unless it is a bcrypt hash ("$2a$...").
	Password string
	// Token is the capability token handed to the dashboard page.
	Token string
}

// Guard decides whether a request may reach the dashboard.
type Guard struct {
	creds  Credentials
	hashed bool
}

// NewGuard creates a guard for creds.
func NewGuard(creds Credentials) *Guard {
	return &Guard{
		creds:  creds,
		hashed: isBcryptHash(creds.Password),
	}
}

// NewToken returns a fresh random capability token.
func NewToken() string {
	return uuid.NewString()
}

// Token returns the guard's capability token.
func (g *Guard) Token() string {
	return g.creds.Token
}

// Allow reports whether r carries valid credentials.
func (g *Guard) Allow(r *http.Request) bool {
	_, err := g.Check(r)
	return err == nil
}

// Check validates r and names the method it used. The method is MethodNone
// when no credentials were presented at all.
func (g *Guard) Check(r *http.Request) (string, error) {
	method := MethodNone

	if token := r.URL.Query().Get(TokenParam); token != "" {
		method = MethodToken
		if g.creds.Token != "" && equal(token, g.creds.Token) {
			return method, nil
		}
	}

	if user, pass, ok := r.BasicAuth(); ok {
		method = MethodBasic
		if g.checkBasic(user, pass) {
			return method, nil
		}
	}

	return method, errors.New(errors.ErrCodeUnauthorized, "authentication required")
}

func (g *Guard) checkBasic(user, pass string) bool {
	if g.creds.Username == "" || g.creds.Password == "" {
		return false
	}

	// Evaluate both halves so a wrong username costs the same as a wrong password.
	userOK := equal(user, g.creds.Username)
	var passOK bool
	if g.hashed {
		passOK = bcrypt.CompareHashAndPassword([]byte(g.creds.Password), []byte(pass)) == nil
	} else {
		passOK = equal(pass, g.creds.Password)
	}
	return userOK && passOK
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func isBcryptHash(s string) bool {
	if !strings.HasPrefix(s, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
