/*
Package handler provides the HTTP handlers and routing setup for the room server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"syncroom/internal/pkg/limiter"
	"syncroom/internal/pkg/logx"
	"syncroom/internal/pkg/resp"
)

const (
	CreateRate  = 0.2
	CreateBurst = 5
	JoinRate    = 1
	JoinBurst   = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// Background work owned by the router, such as limiter cleanup, stops when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(CreateRate), CreateBurst)
	joinLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":  "ok",
			"service": "syncroom",
			"rooms":   len(deps.Manager.Rooms()),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api/rooms", func(api chi.Router) {
		api.Get("/", HandleListRooms(deps))
		api.With(createLimiter.Middleware).Post("/", HandleCreateRoom(deps))
		api.Get("/{room}", HandleGetRoom(deps))
		api.Get("/{room}/history", HandleRoomHistory(deps))
	})

	r.Get("/ws/{room}", HandleWebSocket(wsUpgrader, joinLimiter, deps))

	return r
}
