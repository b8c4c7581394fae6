/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the BinRewards loyalty engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration, apply flag overrides
  2. Initialize structured logging
  3. Open the reward catalog (in-memory or SQLite) and seed it
  4. Build the session manager, token issuer, and recommendation client
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite path for the reward catalog (overrides CATALOG_DB).
           Empty keeps the catalog in memory.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the catalog database, if any
  4. Exit

EXAMPLES:
  # Run fully in memory
  ./server

  # Persist the catalog across restarts
  ./server -db="./data/catalog.db"

  # Point at a live recommendation service
  RECOMMEND_URL=https://reco.internal/v1/suggest ./server

SEE ALSO:
  - config/config.go: Environment variables and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/binrewards/loyalty-engine/api"
	"github.com/binrewards/loyalty-engine/catalog"
	"github.com/binrewards/loyalty-engine/config"
	"github.com/binrewards/loyalty-engine/ledger"
	"github.com/binrewards/loyalty-engine/logger"
	"github.com/binrewards/loyalty-engine/notice"
	"github.com/binrewards/loyalty-engine/recommend"
	"github.com/binrewards/loyalty-engine/session"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment for local runs.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.CatalogDB, "SQLite path for the reward catalog (empty = in-memory)")
	flag.Parse()

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	// Catalog: SQLite when a path is given, memory otherwise.
	var rewards catalog.Store
	if *dbPath != "" {
		store, err := catalog.NewSQLite(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *dbPath).Msg("failed to open catalog database")
		}
		defer store.Close()
		rewards = store
	} else {
		rewards = catalog.NewMemory()
	}
	if err := catalog.Seed(ctx, rewards); err != nil {
		log.Fatal().Err(err).Msg("failed to seed reward catalog")
	}

	provider := session.MockProvider{}
	manager := session.NewManager(session.Config{
		OTPCode:          cfg.OTPCode,
		AdminUser:        cfg.AdminUser,
		AdminPass:        cfg.AdminPass,
		WelcomeBonus:     ledger.Points(cfg.WelcomeBonus),
		AdminSeedBalance: ledger.Points(cfg.AdminSeedBalance),
	}, provider)

	handler := api.NewHandler(api.Deps{
		Manager:    manager,
		Tokens:     session.NewTokens(cfg.TokenSecret, cfg.TokenTTL),
		Provider:   provider,
		Rewards:    rewards,
		Notices:    notice.NewCenter(cfg.ScanNoticeTTL),
		Generator:  recommend.NewClient(cfg.RecommendURL, cfg.RecommendAPIKey, cfg.RecommendModel, cfg.RecommendTimeout, log),
		BinCode:    cfg.BinCode,
		ScanReward: ledger.Points(cfg.ScanRewardAmount),
		Log:        log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
