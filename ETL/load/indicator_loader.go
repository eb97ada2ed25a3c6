package load

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// IndicatorLoader отвечает за таблицу virality_indicators
type IndicatorLoader struct {
	db     *sql.DB
	logger *utils.ETLLogger
}

// NewIndicatorLoader создает новый экземпляр IndicatorLoader
func NewIndicatorLoader(db *sql.DB, logger *utils.ETLLogger) *IndicatorLoader {
	return &IndicatorLoader{
		db:     db,
		logger: logger,
	}
}

// EnsureTable создает таблицу virality_indicators, если она не существует
func (l *IndicatorLoader) EnsureTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS virality_indicators (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		entity_id BIGINT NOT NULL,
		indicator_date DATE NOT NULL,
		growth_rate_7d DOUBLE NOT NULL DEFAULT 0,
		growth_rate_30d DOUBLE NOT NULL DEFAULT 0,
		growth_indicator ENUM('exploding', 'regular', 'peaked') NOT NULL,
		speed_indicator ENUM('exponential', 'constant', 'stationary') NOT NULL,
		volatility ENUM('high', 'average', 'low') NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_entity_date (entity_id, indicator_date)
	);`

	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы virality_indicators: %w", err)
	}
	return nil
}

// UpsertIndicator вставляет или перезаписывает индикаторы на (сущность, дата)
func (l *IndicatorLoader) UpsertIndicator(ctx context.Context, ind models.ViralityIndicator) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO virality_indicators (
			entity_id, indicator_date, growth_rate_7d, growth_rate_30d,
			growth_indicator, speed_indicator, volatility
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		growth_rate_7d = VALUES(growth_rate_7d),
		growth_rate_30d = VALUES(growth_rate_30d),
		growth_indicator = VALUES(growth_indicator),
		speed_indicator = VALUES(speed_indicator),
		volatility = VALUES(volatility)`,
		ind.EntityID,
		ind.IndicatorDate.Format(utils.DateLayout),
		ind.GrowthRate7d,
		ind.GrowthRate30d,
		string(ind.Trajectory),
		string(ind.Speed),
		string(ind.Volatility),
	)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении индикаторов сущности %d: %w", ind.EntityID, err)
	}

	metrics.RecordRows("virality_indicators", 1)
	return nil
}
