package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is who the identity provider says the caller is.
type Identity struct {
	Subject string
	Email   string
	Admin   bool
}

type identityClaims struct {
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// IdentityVerifier checks id tokens signed by the identity provider with a
// shared HS256 secret.
type IdentityVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewIdentityVerifier builds a verifier. Empty issuer or audience disables
// that check.
func NewIdentityVerifier(secret, issuer, audience string) *IdentityVerifier {
	return &IdentityVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

func (v *IdentityVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, unauthenticated(ErrInvalidCredential, "Missing identity token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, unauthenticated(fmt.Errorf("%w: %v", ErrInvalidCredential, err), "Identity token expired")
		}
		return Identity{}, unauthenticated(fmt.Errorf("%w: %v", ErrInvalidCredential, err), "Invalid identity token")
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, unauthenticated(ErrInvalidCredential, "Invalid identity token")
	}

	return Identity{
		Subject: claims.Subject,
		Email:   strings.ToLower(strings.TrimSpace(claims.Email)),
		Admin:   claims.Admin,
	}, nil
}
