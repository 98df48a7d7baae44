package auth

import (
	"context"
	"net/http"
)

type contextKey string

const actorContextKey contextKey = "actor"

// RequireAuth validates the access-token cookie and stores the resulting
// Actor for the handler, which passes it explicitly into every service call.
func RequireAuth(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				WriteError(w, newError(CodeUnauthorized, "Access token not found"))
				return
			}

			claims, err := tokens.VerifyAccessToken(cookie.Value)
			if err != nil {
				WriteError(w, newError(CodeUnauthorized, "Invalid or expired access token"))
				return
			}

			actor := Actor{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
			ctx := context.WithValue(r.Context(), actorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin actors. Must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.IsAdmin() {
			WriteError(w, newError(CodeForbidden, "Access denied. You must be an admin to perform this action."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext retrieves the authenticated actor set by RequireAuth.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(Actor)
	return actor, ok
}
