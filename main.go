// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LilVoxy/virality_metrics/ETL/config"
	"github.com/LilVoxy/virality_metrics/ETL/funding"
	"github.com/LilVoxy/virality_metrics/ETL/linear_regression"
	"github.com/LilVoxy/virality_metrics/ETL/load"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/ranking"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
	"github.com/LilVoxy/virality_metrics/database"
	"github.com/LilVoxy/virality_metrics/routes"
	"github.com/LilVoxy/virality_metrics/websocket"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "dashboard",
		Short:        "API дашборда и живая лента пайплайна виральности",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "файл конфигурации (yaml)")

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Сервер дашборда:", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := utils.NewETLLogger(cfg.Log.Mode, cfg.Log.Detailed, "")
	if err != nil {
		return fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Запуск сервера дашборда...")

	store, err := database.InitDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать базу данных: %w", err)
	}
	defer store.Close()

	db := store.DB()
	metricLoader := load.NewMetricLoader(db, logger)
	fundingRepo := funding.NewMySQLFundingRepository(db)
	runLog := models.NewMySQLETLLogRepository(db)

	api := &routes.API{
		Summaries: ranking.NewSummaryService(ranking.NewMySQLSummaryRepository(db), metricLoader, logger),
		Entities:  store,
		Metrics:   metricLoader,
		Forecasts: linear_regression.NewMySQLPredictionRepository(db),
		Funding:   fundingRepo,
		Tracking:  store,
		Runs:      runLog,
		Logger:    logger,
	}

	hub := websocket.NewHub(logger)
	poller := websocket.NewPoller(runLog, fundingRepo, hub, cfg.Websocket.PollInterval, logger)

	router := mux.NewRouter()
	routes.SetupRoutes(router, api, hub.HandleConnections)

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		poller.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Сервер запущен на %s", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Остановка сервера дашборда")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
