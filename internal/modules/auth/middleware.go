package auth

import (
	"net/http"
	"strings"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
	"github.com/georgemunganga/traceability-backend/internal/platform/web"
)

const authFailed = "Authentication failed"

// Middleware resolves a bearer token into the request caller. Requests
// without an Authorization header continue as the anonymous principal; a
// header that does not verify is rejected with 401.
func Middleware(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := bearerToken(r)
			if !ok {
				web.Fail(w, http.StatusUnauthorized, authFailed)
				return
			}
			claims, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				web.Logger(r.Context()).WithError(err).Warn("authentication error")
				web.Fail(w, http.StatusUnauthorized, authFailed)
				return
			}
			web.Logger(r.Context()).WithField("principal", claims.Subject).Debug("authenticated")
			ctx := identity.WithCaller(r.Context(), identity.Principal(claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous callers.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity.Caller(r.Context()).IsAnonymous() {
			web.Fail(w, http.StatusUnauthorized, "No authentication token, access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
