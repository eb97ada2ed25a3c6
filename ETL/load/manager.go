package load

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// TableInitializer создает свою таблицу при первом запуске
type TableInitializer interface {
	EnsureTable(ctx context.Context) error
}

// LoadManager отвечает за управление загрузкой данных пайплайна
type LoadManager struct {
	db         *sql.DB
	logger     *utils.ETLLogger
	Metrics    *MetricLoader
	Indicators *IndicatorLoader
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(db *sql.DB, logger *utils.ETLLogger) *LoadManager {
	return &LoadManager{
		db:         db,
		logger:     logger,
		Metrics:    NewMetricLoader(db, logger),
		Indicators: NewIndicatorLoader(db, logger),
	}
}

// EnsureSchema создает таблицы загрузчиков и дополнительные таблицы
func (m *LoadManager) EnsureSchema(ctx context.Context, extra ...TableInitializer) error {
	tables := append([]TableInitializer{m.Metrics, m.Indicators}, extra...)
	for _, t := range tables {
		if err := t.EnsureTable(ctx); err != nil {
			return err
		}
	}
	m.logger.Debug("Схема хранилища проверена (%d таблиц)", len(tables))
	return nil
}

// LoadDailyMetrics выполняет фазу загрузки дневных агрегатов
func (m *LoadManager) LoadDailyMetrics(ctx context.Context, rows []models.DailyMetric) error {
	startTime := time.Now()
	m.logger.Info("Начало фазы Load (Загрузка данных)")

	if err := m.Metrics.LoadDailyMetrics(ctx, rows); err != nil {
		m.logger.Error("Ошибка при загрузке дневных метрик: %v", err)
		return fmt.Errorf("ошибка при загрузке дневных метрик: %w", err)
	}

	m.logger.Info("Фаза Load завершена. Длительность: %v", time.Since(startTime))
	return nil
}
