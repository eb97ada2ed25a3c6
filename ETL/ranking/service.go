package ranking

import (
	"context"
	"fmt"

	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/transform"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// RecentMetricReader чтение последних дневных метрик по возрастанию даты
type RecentMetricReader interface {
	GetRecentMetrics(ctx context.Context, entityID int64, limit int) ([]models.DailyMetric, error)
}

// SummaryService загружает сводки и применяет к ним запрос
type SummaryService struct {
	store   SummaryStore
	history RecentMetricReader
	logger  *utils.ETLLogger
}

// NewSummaryService создает новый экземпляр SummaryService
func NewSummaryService(store SummaryStore, history RecentMetricReader, logger *utils.ETLLogger) *SummaryService {
	return &SummaryService{
		store:   store,
		history: history,
		logger:  logger,
	}
}

// LoadSummaries возвращает сводки. При windowDays > 0 рост пересчитывается
// по итоговой виральности за windowDays дней до последней точки сущности,
// объем и виральность берутся из этой точки. Без истории рост равен 0,
// остальные поля не меняются.
func (s *SummaryService) LoadSummaries(ctx context.Context, windowDays int) ([]EntitySummary, error) {
	summaries, err := s.store.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if windowDays <= 0 || s.history == nil {
		return summaries, nil
	}

	// Одна строка на дату, поэтому windowDays+1 строк покрывают окно
	for i := range summaries {
		rows, err := s.history.GetRecentMetrics(ctx, summaries[i].EntityID, windowDays+1)
		if err != nil {
			return nil, fmt.Errorf("ошибка при пересчете роста сущности %d: %w", summaries[i].EntityID, err)
		}
		if len(rows) == 0 {
			summaries[i].GrowthRate30d = 0
			continue
		}

		growth, err := transform.ComputeGrowthRate(models.Series(rows, models.MetricTotal), windowDays)
		if err != nil {
			growth = 0
		}
		latest := rows[len(rows)-1]
		summaries[i].GrowthRate30d = growth
		summaries[i].Volume = latest.Volume
		summaries[i].TotalVirality = latest.Value(models.MetricTotal)
	}

	s.logger.Debug("Рост пересчитан за %d дней для %d сущностей", windowDays, len(summaries))
	return summaries, nil
}

// Query загружает сводки и применяет фильтры и ранжирование
func (s *SummaryService) Query(ctx context.Context, qc QueryContext) ([]EntitySummary, error) {
	summaries, err := s.LoadSummaries(ctx, qc.TimeframeDays)
	if err != nil {
		return nil, err
	}
	return RankAndFilter(qc, summaries), nil
}
