package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"trivia-rank-service/internal/domain"
)

// Claims carried by identity-provider tokens.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 tokens issued by the identity provider.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses a raw token, with or without a "Bearer " prefix, into an identity.
func (v *TokenVerifier) Verify(raw string) (domain.Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" || len(v.secret) == 0 {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return domain.Identity{
		ExternalID: claims.Subject,
		Email:      claims.Email,
		Username:   claims.Username,
	}, nil
}

// Issue signs a token for id valid for ttl. Used by tooling and tests.
func (v *TokenVerifier) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:    id.Email,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ExternalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
