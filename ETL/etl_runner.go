package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/LilVoxy/virality_metrics/ETL/config"
	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/funding"
	"github.com/LilVoxy/virality_metrics/ETL/linear_regression"
	"github.com/LilVoxy/virality_metrics/ETL/load"
	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/pipeline"
	"github.com/LilVoxy/virality_metrics/ETL/transform"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

type ETLRunner struct {
	config   config.PipelineConfig
	db       *sql.DB
	logger   *utils.ETLLogger
	pipeline *pipeline.Pipeline
}

// NewETLRunner создает новый экземпляр ETLRunner
func NewETLRunner(ctx context.Context, cfg config.PipelineConfig) (*ETLRunner, error) {
	logger, err := utils.NewETLLogger(cfg.Log.Mode, cfg.Log.Detailed, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	logger.Info("Инициализация ETL Runner")

	db, err := config.ConnectDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	etlLogRepo := models.NewMySQLETLLogRepository(db)
	fundingRepo := funding.NewMySQLFundingRepository(db)
	forecastRepo := linear_regression.NewMySQLPredictionRepository(db)
	loadManager := load.NewLoadManager(db, logger)

	if err := loadManager.EnsureSchema(ctx, etlLogRepo, fundingRepo, forecastRepo); err != nil {
		config.CloseDatabase(db)
		return nil, fmt.Errorf("ошибка при создании таблиц: %w", err)
	}

	entities := extractors.NewMySQLEntityRepository(db)
	extractor := extractors.NewExtractor(entities, extractors.DefaultSources(time.Now), logger, cfg.Parallelism)
	indicators := transform.NewIndicatorProcessor(
		loadManager.Metrics, loadManager.Indicators, transform.ThresholdsFromConfig(cfg.Indicators), logger)
	tracker := funding.NewTracker(entities, extractors.NewDeterministicFundingSource(time.Now), fundingRepo, logger)
	forecaster := linear_regression.NewRegressionProcessor(
		entities,
		linear_regression.NewDataService(loadManager.Metrics, cfg.Forecast.HistoryLimit),
		forecastRepo,
		logger,
		linear_regression.ConfigFromPipeline(cfg.Forecast),
		time.Now,
	)

	p := pipeline.New(pipeline.Deps{
		Entities:   entities,
		Extractor:  extractor,
		Loader:     loadManager,
		Indicators: indicators,
		Funding:    tracker,
		Forecasts:  forecaster,
		RunLog:     etlLogRepo,
		Logger:     logger,
	})

	return &ETLRunner{
		config:   cfg,
		db:       db,
		logger:   logger,
		pipeline: p,
	}, nil
}

// Close закрывает соединение с базой данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	if err := config.CloseDatabase(r.db); err != nil {
		r.logger.Error("Ошибка при закрытии базы данных: %v", err)
	}
	r.logger.Sync()
}

// StartScheduler запускает три задания по cron-расписаниям
func (r *ETLRunner) StartScheduler(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)
	// Один и тот же job не запускается параллельно сам с собой
	scheduler.SingletonModeAll()

	jobs := []struct {
		name string
		cron string
		run  func(context.Context) (models.JobResult, error)
	}{
		{models.JobIngest, r.config.Schedule.Ingest, r.pipeline.IngestDailyMetrics},
		{models.JobFunding, r.config.Schedule.Funding, r.pipeline.UpdateFundingData},
		{models.JobForecast, r.config.Schedule.Forecast, r.pipeline.GenerateForecasts},
	}

	for _, job := range jobs {
		r.logger.Info("Задание %s по расписанию %q", job.name, job.cron)
		_, err := scheduler.Cron(job.cron).Do(func() {
			r.logger.Info("Запланированный запуск %s", job.name)
			if _, err := job.run(ctx); err != nil {
				r.logger.Error("Ошибка при выполнении запланированного %s: %v", job.name, err)
			}
		})
		if err != nil {
			return fmt.Errorf("ошибка при настройке планировщика для %s: %w", job.name, err)
		}
	}

	scheduler.StartAsync()

	<-ctx.Done()

	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
	return nil
}

// serveMetrics отдает /metrics, пока жив контекст
func (r *ETLRunner) serveMetrics(ctx context.Context) {
	if r.config.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: r.config.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		r.logger.Info("Метрики Prometheus доступны на %s/metrics", r.config.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Ошибка сервера метрик: %v", err)
		}
	}()
}

// signalContext отменяется по SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var configFile string

// withRunner загружает конфигурацию, создает ETLRunner и выполняет fn
func withRunner(fn func(ctx context.Context, r *ETLRunner) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner, err := NewETLRunner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка при создании ETL Runner: %w", err)
	}
	defer runner.Close()

	return fn(ctx, runner)
}

// singleJob команда запуска одного задания
func singleJob(use, short string, pick func(p *pipeline.Pipeline) func(context.Context) (models.JobResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(ctx context.Context, r *ETLRunner) error {
				result, err := pick(r.pipeline)(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: success=%t count=%d skipped=%d failed=%d\n",
					result.Job, result.Success, result.Count, result.Skipped, result.Failed)
				return err
			})
		},
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "etl",
		Short: "Пайплайн метрик виральности",
		Long: `etl запускает задания пайплайна метрик виральности.

Примеры:
  etl scheduled          # задания по cron-расписаниям из конфигурации
  etl once               # все задания по одному разу
  etl ingest             # только сбор дневных метрик
  etl forecast           # только прогнозы`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "файл конфигурации (yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "scheduled",
			Short: "Запуск заданий по расписанию",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(func(ctx context.Context, r *ETLRunner) error {
					r.serveMetrics(ctx)
					return r.StartScheduler(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "once",
			Short: "Однократный запуск всех заданий",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(func(ctx context.Context, r *ETLRunner) error {
					results, err := r.pipeline.RunAll(ctx)
					for _, res := range results {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: success=%t count=%d\n", res.Job, res.Success, res.Count)
					}
					return err
				})
			},
		},
		singleJob("ingest", "Сбор дневных метрик", func(p *pipeline.Pipeline) func(context.Context) (models.JobResult, error) {
			return p.IngestDailyMetrics
		}),
		singleJob("indicators", "Пересчет индикаторов роста", func(p *pipeline.Pipeline) func(context.Context) (models.JobResult, error) {
			return p.RecalculateIndicators
		}),
		singleJob("funding", "Проверка новых раундов финансирования", func(p *pipeline.Pipeline) func(context.Context) (models.JobResult, error) {
			return p.UpdateFundingData
		}),
		singleJob("forecast", "Построение прогнозов", func(p *pipeline.Pipeline) func(context.Context) (models.JobResult, error) {
			return p.GenerateForecasts
		}),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ETL Runner:", err)
		os.Exit(1)
	}
}
