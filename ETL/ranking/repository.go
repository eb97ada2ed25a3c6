package ranking

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// SummaryStore источник материализованных сводок
type SummaryStore interface {
	ListSummaries(ctx context.Context) ([]EntitySummary, error)
}

// MySQLSummaryRepository собирает сводки одним запросом из таблиц пайплайна
type MySQLSummaryRepository struct {
	db *sql.DB
}

// NewMySQLSummaryRepository создает новый экземпляр MySQLSummaryRepository
func NewMySQLSummaryRepository(db *sql.DB) *MySQLSummaryRepository {
	return &MySQLSummaryRepository{db: db}
}

// ListSummaries возвращает сводку по каждой сущности. Отсутствующие
// метрики, индикаторы и финансирование дают нулевые значения.
func (r *MySQLSummaryRepository) ListSummaries(ctx context.Context) ([]EntitySummary, error) {
	query := `
	SELECT
		e.id,
		e.name,
		IFNULL(e.category, ''),
		IFNULL(dm.volume, 0),
		IFNULL(dm.total_virality, 0),
		IFNULL(vi.growth_rate_7d, 0),
		IFNULL(vi.growth_rate_30d, 0),
		IFNULL(vi.growth_indicator, ''),
		IFNULL(vi.speed_indicator, ''),
		IFNULL(vi.volatility, ''),
		IFNULL(fr.amount, 0),
		IFNULL(fr.round_type, '')
	FROM entities e
	LEFT JOIN daily_metrics dm ON dm.entity_id = e.id
		AND dm.metric_date = (SELECT MAX(metric_date) FROM daily_metrics WHERE entity_id = e.id)
	LEFT JOIN virality_indicators vi ON vi.entity_id = e.id
		AND vi.indicator_date = (SELECT MAX(indicator_date) FROM virality_indicators WHERE entity_id = e.id)
	LEFT JOIN funding_rounds fr ON fr.entity_id = e.id AND fr.is_latest = TRUE
	ORDER BY e.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе сводок: %w", err)
	}
	defer rows.Close()

	var summaries []EntitySummary
	for rows.Next() {
		var (
			s                          EntitySummary
			categories                 string
			trajectory, speed, volatil string
		)
		if err := rows.Scan(
			&s.EntityID, &s.Name, &categories,
			&s.Volume, &s.TotalVirality,
			&s.GrowthRate7d, &s.GrowthRate30d,
			&trajectory, &speed, &volatil,
			&s.LatestFundingAmount, &s.LatestRoundType,
		); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании сводки: %w", err)
		}
		s.Categories = models.ParseCategories(categories)
		s.Trajectory = models.Trajectory(trajectory)
		s.Speed = models.Speed(speed)
		s.Volatility = models.Volatility(volatil)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по сводкам: %w", err)
	}

	return summaries, nil
}
