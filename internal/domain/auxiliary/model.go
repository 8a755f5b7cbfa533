package auxiliary

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auxiliary is a member of the auxiliary nursing staff.
type Auxiliary struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// Credentials is the body of a login call.
type Credentials struct {
	ID       int    `json:"id"`
	Password string `json:"password"`
}

// LoginResponse is what the backend answers to a successful login.
type LoginResponse struct {
	Auxiliary Auxiliary `json:"auxiliary"`
	Token     string    `json:"token"`
}

// Session is the in-memory result of a login. It is never persisted.
type Session struct {
	Auxiliary Auxiliary
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token expiry has passed. A session without a
// known expiry never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// NewSession builds a Session from a login response. The token is read
// without verification, only to learn its expiry; the backend remains the
// authority on its validity.
func NewSession(resp LoginResponse) (Session, error) {
	s := Session{Auxiliary: resp.Auxiliary, Token: resp.Token}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.Token, claims); err != nil {
		return Session{}, fmt.Errorf("parse session token: %w", err)
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
