package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rmoldovan/taskgate/internal/user"
)

// TokenVerifier is the interface for verifying bearer tokens.
type TokenVerifier interface {
	ExtractUsername(token string) (string, error)
	IsValid(token string, u *user.User) bool
}

// UserLookup is the interface for resolving usernames to current accounts.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

// Middleware returns middleware that resolves a bearer token in the
// Authorization header to a request-scoped identity. Any failure along the
// way leaves the request anonymous; this stage never writes a response and
// never short-circuits the chain. Rejecting anonymous callers is the job of
// downstream authorization.
func Middleware(tokens TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// An upstream stage may have authenticated already.
			if IdentityFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := extractBearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			username, err := tokens.ExtractUsername(tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			u, err := users.GetByUsername(r.Context(), username)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if !tokens.IsValid(tokenString, u) {
				next.ServeHTTP(w, r)
				return
			}

			id := &Identity{
				Username:      u.Username,
				Roles:         u.Roles,
				Authenticated: true,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

// extractBearerToken pulls the credential out of the Authorization header,
// or returns "" when the header is absent or not a Bearer scheme.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
