package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/rsrank/internal/api"
	"github.com/wonny/rsrank/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /api/rankings            - 최신 랭킹 (?min_percentile=, ?sector=)
  GET  /api/rankings/{symbol}   - 종목 순위 조회
  GET  /api/universe            - 최신 유니버스
  POST /api/rankings/run        - 수집 + 랭킹 실행 (동기)
  GET  /metrics                 - Prometheus metrics

Example:
  go run ./cmd/rsrank api
  go run ./cmd/rsrank api --port 8080 --schedule`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	apiSchedule bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default $PORT)")
	apiCmd.Flags().BoolVar(&apiSchedule, "schedule", false, "ranking_pipeline 스케줄러를 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.logger
	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	var universes handlers.UniverseReader
	if a.universes != nil {
		universes = a.universes
	}

	rankingHandler := handlers.NewRankingHandler(a.pipeline, a.runStore(), universes, a.rankCfg.MinPercentile, log)

	if apiSchedule {
		sched, err := newScheduler(&observedRunner{runner: a.pipeline, onRun: rankingHandler.SetLatest}, log)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	router := api.NewRouter(rankingHandler, a.metrics, log)
	server := api.New(a.cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	PrintList([]string{
		"GET  /health",
		"GET  /api/rankings",
		"GET  /api/rankings/{symbol}",
		"GET  /api/universe",
		"POST /api/rankings/run",
		"GET  /metrics",
	})
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
