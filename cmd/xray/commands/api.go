package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/xray/internal/api"
	"github.com/wonny/xray/internal/api/handlers"
	"github.com/wonny/xray/internal/contracts"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server together with the nightly scheduler.

Endpoints:
  GET    /health                    - Health check
  POST   /api/pipeline/run          - Trigger a pipeline run
  GET    /api/pipeline/latest       - Latest run result
  GET    /api/pipeline/exposures    - Latest exposure table
  GET    /api/pipeline/breakdown    - Latest holdings breakdown
  GET    /api/pipeline/quality      - Latest run health summary
  GET    /api/cache/stats           - Holdings cache statistics
  DELETE /api/cache/funds/{fundID}  - Invalidate one cached fund
  GET    /api/jobs                  - Scheduled job statistics
  POST   /api/jobs/{name}/run       - Trigger one job immediately
  GET    /ws/progress               - Run progress over websocket

Example:
  go run ./cmd/xray api
  go run ./cmd/xray api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== xray API Server ===")

	// The orchestrator is wired before the hub exists, so progress
	// events go through a closure that picks the hub up later.
	var hub *api.ProgressHub
	progress := func(phase contracts.Phase, pct float64) {
		if hub != nil {
			hub.Broadcast(phase, pct)
		}
	}

	d, err := initDeps(progress)
	if err != nil {
		return err
	}
	defer d.Close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	hub = api.NewProgressHub(d.log)
	defer hub.Close()

	sched := newScheduler(d)
	sched.Start()
	defer sched.Stop()

	router := api.NewRouter(
		handlers.NewPipelineHandler(d.orchestrator, d.log),
		handlers.NewCacheHandler(d.holdingsCache, d.log),
		handlers.NewJobsHandler(sched, d.log),
		hub,
		d.log,
	)

	server := api.New(d.cfg, d.log, router)

	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\nServer running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	d.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
