package middleware

import (
	"context"
	"net"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/cookie"
)

type userIDContextKey struct{}

// UserIDFromContext returns the user id stored by Guard.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey{}).(string)
	return id, ok && id != ""
}

// SessionReader resolves a session id to its user. *goAccount.Engine
// satisfies it.
type SessionReader interface {
	CurrentUser(ctx context.Context, sessionID string) (string, bool, error)
}

// Guard admits requests whose session cookie is bound to a user and calls
// reject otherwise. A nil reject writes a bare 401.
func Guard(sessions SessionReader, signer *cookie.Signer, reject http.HandlerFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil || signer == nil {
				reject(w, r)
				return
			}

			sid := signer.Read(r)
			if sid == "" {
				reject(w, r)
				return
			}

			userID, ok, err := sessions.CurrentUser(r.Context(), sid)
			if err != nil || !ok {
				reject(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP stores the host part of RemoteAddr with goAccount.WithClientIP.
// Run chi's RealIP first when the server sits behind a proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(goAccount.WithClientIP(r.Context(), host)))
	})
}
