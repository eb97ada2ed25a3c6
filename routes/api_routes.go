// routes/api_routes.go
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/ranking"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// SummaryQuerier фильтрация и ранжирование сводок
type SummaryQuerier interface {
	Query(ctx context.Context, qc ranking.QueryContext) ([]ranking.EntitySummary, error)
}

// EntityReader чтение сущностей
type EntityReader interface {
	GetEntity(ctx context.Context, id int64) (*models.Entity, error)
}

// MetricReader история дневных метрик
type MetricReader interface {
	GetMetricRange(ctx context.Context, entityID int64, from, to time.Time) ([]models.DailyMetric, error)
}

// ForecastReader прогнозы сущности
type ForecastReader interface {
	GetForecasts(ctx context.Context, entityID int64, metricType models.MetricType) ([]models.ForecastPoint, error)
}

// FundingReader раунды финансирования сущности
type FundingReader interface {
	ListRounds(ctx context.Context, entityID int64) ([]models.FundingRound, error)
}

// TrackingStore отслеживаемые пользователем сущности
type TrackingStore interface {
	TrackEntity(ctx context.Context, userID string, entityID int64) error
	UntrackEntity(ctx context.Context, userID string, entityID int64) error
	ListTracked(ctx context.Context, userID string) ([]models.Entity, error)
}

// RunReader журнал запусков пайплайна
type RunReader interface {
	ListRecentRuns(ctx context.Context, limit int) ([]models.ETLRunLog, error)
	GetStateMonitor(ctx context.Context, job string) (*models.ETLStateMonitor, error)
}

// API зависимости обработчиков дашборда
type API struct {
	Summaries SummaryQuerier
	Entities  EntityReader
	Metrics   MetricReader
	Forecasts ForecastReader
	Funding   FundingReader
	Tracking  TrackingStore
	Runs      RunReader
	Logger    *utils.ETLLogger
	Now       func() time.Time
}

func (a *API) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// SetupRoutes настраивает все маршруты API и WebSocket
func SetupRoutes(router *mux.Router, api *API, ws http.HandlerFunc) {
	if api.Logger == nil {
		api.Logger = utils.NewNopLogger()
	}

	router.Use(CORSMiddleware)
	router.Use(LoggingMiddleware(api.Logger))

	if ws != nil {
		router.HandleFunc("/ws", ws)
	}
	router.Handle("/metrics", metrics.Handler())

	r := router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/entities", api.GetEntitiesHandler).Methods("GET", "OPTIONS")
	r.HandleFunc("/entities/{id:[0-9]+}", api.GetEntityHandler).Methods("GET", "OPTIONS")
	r.HandleFunc("/entities/{id:[0-9]+}/metrics", api.GetMetricsHandler).Methods("GET", "OPTIONS")
	r.HandleFunc("/entities/{id:[0-9]+}/forecasts", api.GetForecastsHandler).Methods("GET", "OPTIONS")
	r.HandleFunc("/entities/{id:[0-9]+}/funding", api.GetFundingHandler).Methods("GET", "OPTIONS")

	r.HandleFunc("/users/{userId}/tracked", api.ListTrackedHandler).Methods("GET", "OPTIONS")
	r.HandleFunc("/users/{userId}/tracked/{entityId:[0-9]+}", api.TrackHandler).Methods("POST", "OPTIONS")
	r.HandleFunc("/users/{userId}/tracked/{entityId:[0-9]+}", api.UntrackHandler).Methods("DELETE")

	r.HandleFunc("/pipeline/runs", api.GetRunsHandler).Methods("GET", "OPTIONS")
	r.HandleFunc("/pipeline/status", api.GetStatusHandler).Methods("GET", "OPTIONS")
}
