package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lanetsoft/agent-hub/internal/agents"
	internalhttp "github.com/lanetsoft/agent-hub/internal/api/http"
	"github.com/lanetsoft/agent-hub/internal/assets"
	"github.com/lanetsoft/agent-hub/internal/auth"
	"github.com/lanetsoft/agent-hub/internal/credentials"
	"github.com/lanetsoft/agent-hub/internal/db"
	"github.com/lanetsoft/agent-hub/internal/directory"
	"github.com/lanetsoft/agent-hub/internal/ledger"
	"github.com/lanetsoft/agent-hub/internal/store"
	"github.com/lanetsoft/agent-hub/internal/tokens"
)

var AppVersion string

func main() {
	config := InitConfig()

	slog.Info("Agent Hub Server", "version", AppVersion)

	if err := db.RunMigrations(config.Database.Url, config.Database.Schema); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.InitDB(ctx, config.Database.Url, config.Database.Schema)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)

	directoryService := directory.NewService(st)
	tokenService := tokens.NewService(st, directoryService)
	resolver := assets.NewResolver(st)
	issuer := credentials.NewIssuer(config.Agent.CredentialSecret)
	ledgerService := ledger.NewService(st)
	agentService := agents.NewService(tokenService, resolver, issuer, ledgerService, config.Agent.Runtime)

	jwtConfig := auth.JWTConfig{
		Secret:          config.Auth.JwtSecret,
		DurationMinutes: config.Auth.SessionMinutes,
	}
	if jwtConfig.DurationMinutes <= 0 {
		jwtConfig.DurationMinutes = 8 * 60
	}
	authService := auth.NewService(st, jwtConfig)

	services := &internalhttp.Services{
		Auth:      authService,
		Tokens:    tokenService,
		Agents:    agentService,
		Assets:    resolver,
		Ledger:    ledgerService,
		DB:        pool,
		JWTSecret: config.Auth.JwtSecret,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Shutdown complete")
}
