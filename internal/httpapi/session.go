package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// sessionCookie scopes an uploaded credential to its browser session. The
// value is an opaque UUIDv4 token, issued once and reused until cleared.
const sessionCookie = "bqgate_session"

type contextKey int

const sessionTokenKey contextKey = iota

// Session issues the session token cookie on first contact and makes the
// token available to handlers via the request context. Cookie values are
// client-supplied: anything that does not parse as a UUID is discarded and
// replaced, so a tampered token can never reach the credential store.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(sessionCookie); err == nil && isSessionToken(cookie.Value) {
			token = cookie.Value
		} else {
			token = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isSessionToken(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// sessionToken returns the token set by Session, or "" outside of it.
func sessionToken(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}

// expireSessionCookie forces the browser to drop its token so the next
// request starts a fresh session.
func expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
