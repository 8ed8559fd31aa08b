// ABOUTME: Gateway orchestrator wiring the token subsystem to the HTTP server
// ABOUTME: Manages issuer, verifier, registries, and server lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/session-gateway/internal/auth"
	"github.com/2389/session-gateway/internal/config"
	"github.com/2389/session-gateway/internal/store"
)

// sweepInterval is how often naturally-expired registry entries are trimmed.
const sweepInterval = time.Minute

// Gateway orchestrates the session-gateway server components: the user
// store, the token issuer/verifier pair, the revocation and refresh
// registries, and the HTTP server.
type Gateway struct {
	store      store.UserStore
	issuer     *auth.Issuer
	verifier   *auth.Verifier
	registry   *auth.Registry
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a Gateway from configuration and a user store.
func New(cfg *config.Config, userStore store.UserStore, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	secret := []byte(cfg.Auth.JWTSecret)

	issuer, err := auth.NewIssuer(secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("creating issuer: %w", err)
	}

	registry := auth.NewRegistry()
	verifier, err := auth.NewVerifier(secret, registry)
	if err != nil {
		return nil, fmt.Errorf("creating verifier: %w", err)
	}

	g := &Gateway{
		store:    userStore,
		issuer:   issuer,
		verifier: verifier,
		registry: registry,
		logger:   logger,
	}
	g.httpServer = &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: g.Handler(),
	}
	return g, nil
}

// Handler returns the complete HTTP handler for the gateway API.
func (g *Gateway) Handler() http.Handler {
	requireAuth := auth.RequireAuth(g.verifier, g.logger)
	requireAdmin := auth.RequireRole(store.RoleAdmin)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", g.handleLogin)
	mux.HandleFunc("/auth/refresh", g.handleRefresh)
	mux.Handle("/auth/logout", requireAuth(http.HandlerFunc(g.handleLogout)))
	mux.Handle("/auth/me", requireAuth(http.HandlerFunc(g.handleMe)))
	mux.Handle("/protected/data", requireAuth(http.HandlerFunc(g.handleProtectedData)))
	mux.Handle("/protected/admin", requireAuth(requireAdmin(http.HandlerFunc(g.handleAdmin))))
	mux.HandleFunc("/public/info", g.handlePublicInfo)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/", g.handleNotFound)
	return mux
}

// Start runs the HTTP server until ctx is canceled, then shuts down
// gracefully. The registry sweeper runs for the same lifetime.
func (g *Gateway) Start(ctx context.Context) error {
	g.registry.StartSweeper(ctx, sweepInterval, g.logger)

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g.logger.Info("shutting down http server")
	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
