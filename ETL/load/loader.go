package load

import (
	"context"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// Loader интерфейс для загрузки дневных агрегатов в хранилище
type Loader interface {
	// LoadDailyMetrics загружает дневные агрегаты (всё или ничего)
	LoadDailyMetrics(ctx context.Context, rows []models.DailyMetric) error
}

// MetricReader чтение истории дневных метрик
type MetricReader interface {
	// GetRecentMetrics возвращает не более limit последних строк по возрастанию даты
	GetRecentMetrics(ctx context.Context, entityID int64, limit int) ([]models.DailyMetric, error)

	// GetMetricRange возвращает строки за [from, to] по возрастанию даты
	GetMetricRange(ctx context.Context, entityID int64, from, to time.Time) ([]models.DailyMetric, error)
}

var (
	_ Loader       = (*MetricLoader)(nil)
	_ Loader       = (*LoadManager)(nil)
	_ MetricReader = (*MetricLoader)(nil)
)
