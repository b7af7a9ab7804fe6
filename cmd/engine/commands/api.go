package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/investorcenter/ic-engine/internal/api"
	"github.com/investorcenter/ic-engine/internal/api/handlers"
	"github.com/investorcenter/ic-engine/internal/sector"
)

// apiCmd starts the HTTP API server.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health                        - Health check
  POST /api/scores/calculate          - Run the scoring pipeline
  GET  /api/scores/{ticker}           - Latest (or ?date=) score
  GET  /api/scores/{ticker}/history   - Score history
  GET  /api/scores/{ticker}/changes   - Explained score changes
  GET  /api/lifecycle/{ticker}        - Lifecycle classification
  GET  /api/sectors/{sector}/stats    - Sector metric distribution
  POST /api/backtest                  - Submit a backtest job
  GET  /api/backtest/{id}             - Job status
  GET  /api/backtest/{id}/result      - Completed job summary
  GET  /api/backtest/{id}/stream      - Websocket progress stream
  POST /api/backtest/{id}/cancel      - Cancel a running job

Example:
  go run ./cmd/engine api
  go run ./cmd/engine api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	scoresHandler := handlers.NewScoresHandler(
		a.pipeline, a.store.Scores, a.store.Changes,
		a.store.Lifecycle, a.sectors, sector.New(a.scoringCfg), a.log,
	)
	backtestHandler := handlers.NewBacktestHandler(a.runner, a.log)
	healthHandler := handlers.NewHealthHandler(a.db, a.redis, a.configHash, a.log)

	router := api.NewRouter(scoresHandler, backtestHandler, healthHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
