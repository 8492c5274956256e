package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/logger"
)

// SessionVerifier resolves a session token to a user. A nil user means the token is not valid.
type SessionVerifier interface {
	VerifySessionToken(ctx context.Context, token string) (*domain.UserInfo, error)
}

// Auth requires a valid session token on every path except the public ones.
// The token is read from "Authorization: Bearer <token>" or the session_token query parameter.
func Auth(verifier SessionVerifier, log zerolog.Logger, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := sessionToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "missing session token")
				return
			}

			user, err := verifier.VerifySessionToken(r.Context(), token)
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("Session verification failed")
				WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if user == nil {
				WriteServiceError(w, log, domain.ErrInvalidSession)
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = logger.WithContext(ctx, log.With().
				Str("request_id", RequestIDFromContext(ctx)).
				Int64("user_id", user.UserID).
				Logger())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *domain.UserInfo) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *domain.UserInfo {
	user, _ := ctx.Value(userKey).(*domain.UserInfo)
	return user
}

func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("session_token")
}
