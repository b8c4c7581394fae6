/*
middleware.go - Bearer-token authentication for session-scoped routes

PURPOSE:
  Every authenticated route expects "Authorization: Bearer <jwt>". The
  token carries the session ID; it is only honored while that session
  is still the live one, so a token outlives sign-out in the client but
  not on the server.

SEE ALSO:
  - session/token.go: Issue/Parse
  - session/session.go: Resolve
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/binrewards/loyalty-engine/session"
)

type contextKey string

const sessionKey contextKey = "session"

// sessionFrom returns the session the auth middleware resolved. Only
// valid on routes behind RequireSession.
func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// RequireSession rejects requests without a valid token for the live
// session.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}

		claims, err := h.Tokens.Parse(strings.TrimPrefix(header, prefix))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		s, err := h.Manager.Resolve(claims.SessionID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session ended", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

// RequireAdmin gates operator routes. Runs after RequireSession.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r.Context())
		if s == nil || !s.Engine.Snapshot().IsAdmin {
			writeError(w, http.StatusForbidden, "Operator access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
