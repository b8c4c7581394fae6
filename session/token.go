/*
token.go - Bearer tokens identifying a session over HTTP

PURPOSE:
  Once the state machine reaches LOGGED_IN, the API hands the client a
  signed token carrying the session ID and admin flag. The token is a
  transport convenience only: authority always derives from resolving
  the live session, so a token for a signed-out session is worthless
  regardless of its expiry.
*/
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by a session token.
type Claims struct {
	SessionID string `json:"sid"`
	Admin     bool   `json:"admin"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned for expired, malformed, or badly signed
// tokens.
var ErrInvalidToken = errors.New("invalid session token")

// Tokens issues and parses HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given session.
func (t *Tokens) Issue(s *Session) (string, error) {
	claims := &Claims{
		SessionID: s.ID,
		Admin:     s.Engine.Snapshot().IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates a token and returns its claims.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
