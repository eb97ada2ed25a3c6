package load

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// MetricLoader отвечает за таблицу daily_metrics
type MetricLoader struct {
	db     *sql.DB
	logger *utils.ETLLogger
}

// NewMetricLoader создает новый экземпляр MetricLoader
func NewMetricLoader(db *sql.DB, logger *utils.ETLLogger) *MetricLoader {
	return &MetricLoader{
		db:     db,
		logger: logger,
	}
}

// EnsureTable создает таблицу daily_metrics, если она не существует
func (l *MetricLoader) EnsureTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS daily_metrics (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		entity_id BIGINT NOT NULL,
		metric_date DATE NOT NULL,
		website_virality DOUBLE NOT NULL DEFAULT 0,
		youtube_virality DOUBLE NOT NULL DEFAULT 0,
		x_virality DOUBLE NOT NULL DEFAULT 0,
		volume DOUBLE NOT NULL DEFAULT 0,
		total_virality DOUBLE NOT NULL DEFAULT 0,
		raw_readings BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_entity_date (entity_id, metric_date)
	);`

	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы daily_metrics: %w", err)
	}
	return nil
}

// LoadDailyMetrics загружает дневные агрегаты одной транзакцией.
// Любая ошибка откатывает всю пачку.
func (l *MetricLoader) LoadDailyMetrics(ctx context.Context, rows []models.DailyMetric) error {
	if len(rows) == 0 {
		l.logger.Debug("Нет дневных метрик для загрузки")
		return nil
	}

	startTime := time.Now()
	l.logger.Info("Начало загрузки дневных метрик (всего: %d)", len(rows))

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_metrics (
			entity_id, metric_date, website_virality, youtube_virality, x_virality, volume, raw_readings
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		website_virality = VALUES(website_virality),
		youtube_virality = VALUES(youtube_virality),
		x_virality = VALUES(x_virality),
		volume = VALUES(volume),
		raw_readings = VALUES(raw_readings)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при подготовке запроса: %w", err)
	}
	defer stmt.Close()

	for _, m := range rows {
		_, err := stmt.ExecContext(ctx,
			m.EntityID,
			m.MetricDate.Format(utils.DateLayout),
			m.WebsiteVirality,
			m.VideoVirality,
			m.SocialVirality,
			m.Volume,
			m.RawReadings,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("ошибка при загрузке метрик сущности %d: %w", m.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	metrics.RecordRows("daily_metrics", len(rows))
	l.logger.Info("Загрузка дневных метрик завершена. Загружено записей: %d. Длительность: %v",
		len(rows), time.Since(startTime))

	return nil
}

const metricColumns = `
	entity_id, metric_date, website_virality, youtube_virality, x_virality,
	volume, total_virality, raw_readings`

// GetMetricRange возвращает строки сущности за [from, to] по возрастанию даты
func (l *MetricLoader) GetMetricRange(ctx context.Context, entityID int64, from, to time.Time) ([]models.DailyMetric, error) {
	query := `SELECT` + metricColumns + `
	FROM daily_metrics
	WHERE entity_id = ? AND metric_date BETWEEN ? AND ?
	ORDER BY metric_date`

	return l.queryMetrics(ctx, query, entityID, from.Format(utils.DateLayout), to.Format(utils.DateLayout))
}

// GetRecentMetrics возвращает не более limit последних строк сущности
// в хронологическом порядке
func (l *MetricLoader) GetRecentMetrics(ctx context.Context, entityID int64, limit int) ([]models.DailyMetric, error) {
	query := `SELECT` + metricColumns + `
	FROM daily_metrics
	WHERE entity_id = ?
	ORDER BY metric_date DESC
	LIMIT ?`

	rows, err := l.queryMetrics(ctx, query, entityID, limit)
	if err != nil {
		return nil, err
	}

	// Выборка идет от новых к старым, для регрессии нужен прямой порядок
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// UpdateTotalVirality сохраняет итоговую виральность строки
func (l *MetricLoader) UpdateTotalVirality(ctx context.Context, entityID int64, date time.Time, total float64) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE daily_metrics SET total_virality = ? WHERE entity_id = ? AND metric_date = ?`,
		total, entityID, date.Format(utils.DateLayout))
	if err != nil {
		return fmt.Errorf("ошибка при обновлении total_virality: %w", err)
	}
	return nil
}

func (l *MetricLoader) queryMetrics(ctx context.Context, query string, args ...interface{}) ([]models.DailyMetric, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе дневных метрик: %w", err)
	}
	defer rows.Close()

	var result []models.DailyMetric
	for rows.Next() {
		var m models.DailyMetric
		if err := rows.Scan(
			&m.EntityID, &m.MetricDate, &m.WebsiteVirality, &m.VideoVirality, &m.SocialVirality,
			&m.Volume, &m.TotalVirality, &m.RawReadings,
		); err != nil {
			return nil, fmt.Errorf("ошибка при чтении дневной метрики: %w", err)
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по дневным метрикам: %w", err)
	}

	return result, nil
}
