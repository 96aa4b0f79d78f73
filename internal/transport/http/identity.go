package http

import (
	"context"
	"net/http"

	"trivia-rank-service/internal/domain"
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(raw string) (domain.Identity, error)
}

type identityKey struct{}

// withIdentity attaches the caller's identity to the request context. Browsers
// cannot set headers on websocket upgrades, so a token query parameter is
// accepted too. An absent or invalid token leaves the identity empty and
// protected operations answer 401.
func withIdentity(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if raw == "" {
			raw = r.URL.Query().Get("token")
		}
		if raw != "" && verifier != nil {
			if id, err := verifier.Verify(raw); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), identityKey{}, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func identityFrom(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey{}).(domain.Identity)
	return id
}
