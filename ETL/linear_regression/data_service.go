package linear_regression

import (
	"context"
	"fmt"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// HistoryReader чтение последних дневных метрик сущности
type HistoryReader interface {
	GetRecentMetrics(ctx context.Context, entityID int64, limit int) ([]models.DailyMetric, error)
}

// DataService сервис для получения истории метрик
type DataService struct {
	history HistoryReader
	limit   int
}

// NewDataService создает новый сервис для работы с данными
func NewDataService(history HistoryReader, limit int) *DataService {
	return &DataService{
		history: history,
		limit:   limit,
	}
}

// GetHistory возвращает не более limit последних строк сущности
// в хронологическом порядке
func (s *DataService) GetHistory(ctx context.Context, entityID int64) ([]models.DailyMetric, error) {
	rows, err := s.history.GetRecentMetrics(ctx, entityID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении истории сущности %d: %w", entityID, err)
	}
	return rows, nil
}

// GetDataPoints строит точки регрессии по метрике. X - индекс дня в истории.
func GetDataPoints(history []models.DailyMetric, metricType models.MetricType) []DataPoint {
	return IndexPoints(models.Series(history, metricType))
}
