package linear_regression

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// MySQLPredictionRepository реализация PredictionRepository для работы с MySQL
type MySQLPredictionRepository struct {
	db *sql.DB
}

// NewMySQLPredictionRepository создает новый репозиторий для работы с прогнозами
func NewMySQLPredictionRepository(db *sql.DB) *MySQLPredictionRepository {
	return &MySQLPredictionRepository{
		db: db,
	}
}

// EnsureTable проверяет наличие таблицы и создает ее при необходимости
func (r *MySQLPredictionRepository) EnsureTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS virality_forecasts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		entity_id BIGINT NOT NULL,
		forecast_date DATE NOT NULL,
		metric_type VARCHAR(16) NOT NULL,
		forecasted_value DOUBLE NOT NULL,
		confidence_lower DOUBLE NOT NULL,
		confidence_upper DOUBLE NOT NULL,
		model_version VARCHAR(32) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_entity_date_metric (entity_id, forecast_date, metric_type),
		INDEX idx_forecast_date (forecast_date)
	);`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы virality_forecasts: %w", err)
	}
	return nil
}

// SaveForecasts сохраняет прогнозы в транзакции. Повторный запуск
// перезаписывает строки по ключу (entity_id, forecast_date, metric_type).
func (r *MySQLPredictionRepository) SaveForecasts(ctx context.Context, forecasts []models.ForecastPoint) error {
	if len(forecasts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO virality_forecasts
		(entity_id, forecast_date, metric_type, forecasted_value, confidence_lower, confidence_upper, model_version)
	VALUES
		(?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		forecasted_value = VALUES(forecasted_value),
		confidence_lower = VALUES(confidence_lower),
		confidence_upper = VALUES(confidence_upper),
		model_version = VALUES(model_version)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("не удалось подготовить запрос: %w", err)
	}
	defer stmt.Close()

	for _, f := range forecasts {
		_, err := stmt.ExecContext(ctx,
			f.EntityID,
			f.ForecastDate.Format(utils.DateLayout),
			string(f.MetricType),
			f.ForecastedValue,
			f.ConfidenceLower,
			f.ConfidenceUpper,
			f.ModelVersion,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("не удалось выполнить запрос: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}

	metrics.RecordRows("virality_forecasts", len(forecasts))
	return nil
}

// GetForecasts получает прогнозы сущности по типу метрики
func (r *MySQLPredictionRepository) GetForecasts(ctx context.Context, entityID int64, metricType models.MetricType) ([]models.ForecastPoint, error) {
	query := `
	SELECT entity_id, forecast_date, metric_type, forecasted_value, confidence_lower, confidence_upper, model_version
	FROM virality_forecasts
	WHERE entity_id = ? AND metric_type = ?
	ORDER BY forecast_date;`

	rows, err := r.db.QueryContext(ctx, query, entityID, string(metricType))
	if err != nil {
		return nil, fmt.Errorf("ошибка при выполнении запроса: %w", err)
	}
	defer rows.Close()

	var forecasts []models.ForecastPoint
	for rows.Next() {
		var f models.ForecastPoint
		var metric string
		if err := rows.Scan(&f.EntityID, &f.ForecastDate, &metric, &f.ForecastedValue,
			&f.ConfidenceLower, &f.ConfidenceUpper, &f.ModelVersion); err != nil {
			return nil, fmt.Errorf("ошибка при чтении данных: %w", err)
		}
		f.MetricType = models.MetricType(metric)
		forecasts = append(forecasts, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по результатам: %w", err)
	}

	return forecasts, nil
}

// DeleteOldPredictions удаляет прогнозы с датой раньше olderThan
func (r *MySQLPredictionRepository) DeleteOldPredictions(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM virality_forecasts WHERE forecast_date < ?`,
		olderThan.Format(utils.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("ошибка при удалении устаревших прогнозов: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return deleted, nil
}

var _ PredictionRepository = (*MySQLPredictionRepository)(nil)
