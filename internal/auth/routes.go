package auth

import (
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the auth endpoints. Rate limits mirror the abuse
// surface: tight windows on the mail-sending routes, a broad one elsewhere.
func RegisterRoutes(r chi.Router, h *Handler, tokens *TokenManager, limiter *RateLimiter) {
	authLimit := limiter.LimitIP(100, 15*time.Minute)
	mailLimit := limiter.LimitIP(5, time.Hour)

	// Public routes
	r.Group(func(r chi.Router) {
		r.With(authLimit).Post("/register", h.RegisterHandler)
		r.Get("/verify/{token}", h.VerifyEmailHandler)
		r.With(mailLimit).Post("/email/resend", h.ResendVerificationHandler)
		r.With(authLimit).Post("/login", h.LoginHandler)
		r.With(mailLimit).Post("/password/forgot", h.ForgotPasswordHandler)
		r.Post("/password/reset/{token}", h.ResetPasswordHandler)
		r.Get("/refresh-token", h.RefreshHandler)
		r.Post("/login/google", h.GoogleLoginHandler)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(tokens))

		r.Post("/logout", h.LogoutHandler)
		r.Post("/logout-all-sessions", h.LogoutAllHandler)
		r.Get("/sessions", h.ActiveSessionsHandler)
		r.Post("/session/{sessionID}", h.LogoutSessionHandler)
		r.Get("/profile", h.ProfileHandler)
	})
}

// RegisterAdminRoutes mounts the admin endpoints behind the admin check.
func RegisterAdminRoutes(r chi.Router, h *AdminHandler, tokens *TokenManager) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(tokens))
		r.Use(RequireAdmin)

		r.Get("/users", h.ListUsersHandler)
		r.Get("/user/{userID}", h.UserSessionsHandler)
		r.Post("/users/session/{sessionID}", h.RevokeSessionHandler)
		r.Patch("/user/{userID}", h.UpdateRoleHandler)
		r.Delete("/user/{userID}", h.DeleteUserHandler)
	})
}
