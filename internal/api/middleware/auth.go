package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/instance-deploy/internal/activity"
	"github.com/edvin/instance-deploy/internal/api/response"
	"github.com/edvin/instance-deploy/internal/model"
)

type contextKey string

const activationTokenKey contextKey = "activation_token"

// TokenVerifier validates activation tokens.
type TokenVerifier interface {
	Verify(token string) (jwt.MapClaims, error)
}

// ActivationToken returns a middleware that requires a valid activation
// token in the jwt header. A missing token is rejected with 400, an invalid
// one with 403.
func ActivationToken(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(activity.TokenHeader)
			if _, err := verifier.Verify(token); err != nil {
				status := http.StatusForbidden
				if model.IsKind(err, model.KindAuthMissing) {
					status = http.StatusBadRequest
				}
				zerolog.Ctx(r.Context()).Warn().Err(err).Int("status", status).Msg("activation token rejected")
				response.WriteError(w, status, publicAuthMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), activationTokenKey, token)))
		})
	}
}

func publicAuthMessage(err error) string {
	if model.IsKind(err, model.KindAuthMissing) {
		return "missing activation token"
	}
	return "invalid activation token"
}

// ActivationTokenFrom returns the verified token stored by ActivationToken.
func ActivationTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(activationTokenKey).(string)
	return token
}
