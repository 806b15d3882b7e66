// Package auth verifies activation tokens presented by the origin system.
package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/edvin/instance-deploy/internal/model"
)

// Verifier checks HS256 activation tokens against a shared secret.
type Verifier struct {
	signingKey []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{signingKey: []byte(secret)}
}

// Verify validates the token signature and, when present, its expiry.
// An empty token is an auth_missing error; anything else that fails is
// auth_invalid.
func (v *Verifier) Verify(token string) (jwt.MapClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.NewError(model.KindAuthMissing, "missing activation token")
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.WrapError(err, model.KindAuthInvalid, "activation token expired")
		}
		return nil, model.WrapError(err, model.KindAuthInvalid, "invalid activation token")
	}
	if !parsed.Valid {
		return nil, model.NewError(model.KindAuthInvalid, "invalid activation token")
	}
	return claims, nil
}

// Sign issues an HS256 token with the given claims. It is used by operator
// tooling and tests.
func (v *Verifier) Sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
}
