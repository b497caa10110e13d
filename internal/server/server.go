// Package server exposes the marketplace over an HTTP + WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/autentica/marketplace/internal/server/handler"
	"github.com/autentica/marketplace/internal/server/middleware"
	"github.com/autentica/marketplace/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Trades   *handler.TradeHandler
	Mints    *handler.MintHandler
	Admin    *handler.AdminHandler
	Operator *handler.OperatorHandler
}

// Server is the headless HTTP + WebSocket API for the marketplace.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Marketplace state.
	mux.HandleFunc("GET /api/status", handlers.Admin.Status)
	mux.HandleFunc("GET /api/collections/{collection}/tokens/{id}/fees", handlers.Admin.GetFees)

	// Trade endpoints.
	mux.HandleFunc("POST /api/trades/check", handlers.Trades.CheckTrade)
	mux.HandleFunc("POST /api/trades/coins", handlers.Trades.TradeForCoins)
	mux.HandleFunc("POST /api/trades/tokens", handlers.Trades.TradeForTokens)
	mux.HandleFunc("GET /api/settlements", handlers.Trades.ListSettlements)

	// Mint endpoints.
	mux.HandleFunc("POST /api/mints", handlers.Mints.Mint)
	mux.HandleFunc("POST /api/mints/investor", handlers.Mints.InvestorMint)
	mux.HandleFunc("POST /api/mints/investor/check", handlers.Mints.CheckInvestorMint)
	mux.HandleFunc("GET /api/mints", handlers.Mints.ListMints)
	mux.HandleFunc("GET /api/tokens/{id}", handlers.Mints.GetToken)

	// Payment-token allow-list.
	mux.HandleFunc("GET /api/tokens/allowed", handlers.Admin.ListAllowedTokens)
	mux.HandleFunc("GET /api/tokens/allowed/{index}", handlers.Admin.GetAllowedTokenAt)
	mux.HandleFunc("POST /api/tokens/allowed", handlers.Admin.AddAllowedToken)
	mux.HandleFunc("DELETE /api/tokens/allowed/{index}", handlers.Admin.RemoveAllowedToken)

	// Administration.
	mux.HandleFunc("POST /api/admin/pause", handlers.Admin.Pause)
	mux.HandleFunc("POST /api/admin/unpause", handlers.Admin.Unpause)
	mux.HandleFunc("PUT /api/admin/autentica", handlers.Admin.SetAutentica)
	mux.HandleFunc("PUT /api/admin/marketplace", handlers.Mints.SetMarketplace)

	// Operator signing.
	mux.HandleFunc("GET /api/operator/address", handlers.Operator.GetAddress)
	mux.HandleFunc("POST /api/operator/sign/trade", handlers.Operator.SignTrade)
	mux.HandleFunc("POST /api/operator/sign/mint", handlers.Operator.SignMint)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
