// Package server assembles the HTTP + WebSocket API: route registration,
// middleware chain and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dexiq/dexiq/internal/server/handler"
	"github.com/dexiq/dexiq/internal/server/middleware"
	"github.com/dexiq/dexiq/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Tokens    *handler.TokenHandler
	Positions *handler.PositionHandler
}

// Server is the HTTP + WebSocket API server for the token tracker.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and middleware and returns a ready server.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/v1/tokens", handlers.Tokens.Track)
	mux.HandleFunc("GET /api/v1/tokens", handlers.Tokens.ListTokens)
	mux.HandleFunc("GET /api/v1/tokens/{id}", handlers.Tokens.GetToken)
	mux.HandleFunc("GET /api/v1/tokens/{id}/status", handlers.Tokens.Status)
	mux.HandleFunc("POST /api/v1/tokens/{id}/analyse", handlers.Tokens.Analyse)

	mux.HandleFunc("POST /api/v1/tokens/{id}/transactions", handlers.Positions.RecordTransaction)
	mux.HandleFunc("GET /api/v1/tokens/{id}/position", handlers.Positions.Position)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens for HTTP requests and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
