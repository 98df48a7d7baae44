package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/VoltaShop-io/voltashop/internal/auth"
	"github.com/VoltaShop-io/voltashop/internal/config"
)

// Api assembles the HTTP surface: routing, CORS, middleware and the
// background session cleanup loop. All auth decisions live in auth.Service.
type Api struct {
	Config   *config.Config
	Router   *chi.Mux
	service  *auth.Service
	sessions auth.SessionStore
}

// NewApi wires the router around an already-constructed service.
func NewApi(cfg *config.Config, service *auth.Service, sessions auth.SessionStore, tokens *auth.TokenManager) (*Api, error) {
	if cfg.APIPort == 0 {
		return nil, fmt.Errorf("must have at least a port to start API")
	}

	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		service:  service,
		sessions: sessions,
	}
	api.setupRoutes(tokens)
	return api, nil
}

func (api *Api) setupRoutes(tokens *auth.TokenManager) {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{api.Config.ClientURL, "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	cookies := auth.CookieWriter{Secure: api.Config.IsProd()}
	handler := auth.NewHandler(api.service, cookies)
	adminHandler := auth.NewAdminHandler(api.service)
	limiter := auth.NewRateLimiter()

	r.Route("/api/v1/auth", func(r chi.Router) {
		auth.RegisterRoutes(r, handler, tokens, limiter)
	})
	r.Route("/api/v1/admin", func(r chi.Router) {
		auth.RegisterAdminRoutes(r, adminHandler, tokens)
	})
}

// Serve starts the server and the expired-session cleanup loop. Blocks until
// the listener fails.
func (api *Api) Serve() error {
	go api.cleanupLoop()

	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	log.Printf("Starting API server on %s", addr)
	return http.ListenAndServe(addr, api.Router)
}

func (api *Api) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		if err := api.sessions.DeleteExpired(context.Background(), time.Now().UTC()); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		<-ticker.C
	}
}
