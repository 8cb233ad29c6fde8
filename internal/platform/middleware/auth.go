package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "hookwarden/pkg/domain"
	"hookwarden/pkg/requestcontext"
)

// AccountExtractor validates a bearer token and returns the acting account.
type AccountExtractor interface {
	ExtractAccountID(tokenString string) (id.AccountID, error)
}

// RequireAuth validates the Authorization header and stores the acting
// account in the request context. Services read it back through
// requestcontext.Actor.
func RequireAuth(tokens AccountExtractor, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			account, err := tokens.ExtractAccountID(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, account)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
