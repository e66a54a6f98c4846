package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingzhao/fundv/internal/api"
	"github.com/mingzhao/fundv/internal/api/handlers"
	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/store"
	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/database"
	"github.com/mingzhao/fundv/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the valuation API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                          - Health check
  POST /api/valuation                   - Valuate an inline snapshot
  GET  /api/valuation/{ticker}          - Fetch data and valuate
  GET  /api/valuation/{ticker}/latest   - Latest stored run
  GET  /api/valuation/{ticker}/history  - Recent stored runs

Example:
  go run ./cmd/fundv api
  go run ./cmd/fundv api --port 8086`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== fundv API Server ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// Run storage is optional; without DATABASE_URL the server still
	// valuates, it just cannot persist or serve stored runs.
	var repo contracts.RunRepository
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		repo = store.NewRepository(db.Pool)
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set, valuation runs will not be persisted")
	}

	provider, cleanup, err := newProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("init market data provider: %w", err)
	}
	defer cleanup()

	engine := newEngine(cfg, log)

	valuationHandler := handlers.NewValuationHandler(engine, provider, repo, log)
	router := api.NewRouter(valuationHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\nServer running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
