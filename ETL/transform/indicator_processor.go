package transform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// MetricHistoryStore чтение истории дневных метрик и запись итоговой виральности
type MetricHistoryStore interface {
	// GetMetricRange возвращает строки за [from, to] по возрастанию даты
	GetMetricRange(ctx context.Context, entityID int64, from, to time.Time) ([]models.DailyMetric, error)
	// UpdateTotalVirality сохраняет итоговую виральность строки
	UpdateTotalVirality(ctx context.Context, entityID int64, date time.Time, total float64) error
}

// IndicatorStore запись индикаторов виральности
type IndicatorStore interface {
	UpsertIndicator(ctx context.Context, indicator models.ViralityIndicator) error
}

// IndicatorProcessor пересчитывает индикаторы роста сущности на дату
type IndicatorProcessor struct {
	history    MetricHistoryStore
	indicators IndicatorStore
	thresholds Thresholds
	logger     *utils.ETLLogger
}

// NewIndicatorProcessor создает новый экземпляр IndicatorProcessor
func NewIndicatorProcessor(history MetricHistoryStore, indicators IndicatorStore, thresholds Thresholds, logger *utils.ETLLogger) *IndicatorProcessor {
	return &IndicatorProcessor{
		history:    history,
		indicators: indicators,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Recalculate пересчитывает итоговую виральность и индикаторы роста.
// Если данных на дату нет, возвращает (nil, nil): сущность пропускается.
func (p *IndicatorProcessor) Recalculate(ctx context.Context, entityID int64, date time.Time) (*models.ViralityIndicator, error) {
	day := utils.TruncateToDay(date)

	history, err := p.history.GetMetricRange(ctx, entityID, day.AddDate(0, 0, -Window30d), day)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении истории метрик сущности %d: %w", entityID, err)
	}
	if len(history) == 0 {
		p.logger.Debug("Нет метрик для сущности %d на %s, индикаторы не рассчитываются",
			entityID, day.Format(utils.DateLayout))
		return nil, nil
	}

	// Итоговая виральность считается здесь, а не при загрузке
	for i := range history {
		combined := history[i].CombinedVirality()
		if history[i].TotalVirality == combined {
			continue
		}
		if history[i].MetricDate.Equal(day) {
			if err := p.history.UpdateTotalVirality(ctx, entityID, day, combined); err != nil {
				return nil, fmt.Errorf("ошибка при сохранении итоговой виральности сущности %d: %w", entityID, err)
			}
		}
		history[i].TotalVirality = combined
	}

	series := models.Series(history, models.MetricTotal)
	growth7d, err := ComputeGrowthRate(series, Window7d)
	if err != nil && !errors.Is(err, models.ErrNoData) {
		return nil, err
	}
	growth30d, err := ComputeGrowthRate(series, Window30d)
	if err != nil && !errors.Is(err, models.ErrNoData) {
		return nil, err
	}

	class := ClassifyIndicators(growth7d, growth30d, p.thresholds)
	indicator := models.ViralityIndicator{
		EntityID:      entityID,
		IndicatorDate: day,
		GrowthRate7d:  growth7d,
		GrowthRate30d: growth30d,
		Trajectory:    class.Trajectory,
		Speed:         class.Speed,
		Volatility:    class.Volatility,
	}

	if err := p.indicators.UpsertIndicator(ctx, indicator); err != nil {
		return nil, fmt.Errorf("ошибка при сохранении индикаторов сущности %d: %w", entityID, err)
	}

	p.logger.Debug("Индикаторы сущности %d на %s: рост 7д=%.2f%%, 30д=%.2f%%, %s/%s/%s",
		entityID, day.Format(utils.DateLayout), growth7d, growth30d,
		class.Trajectory, class.Speed, class.Volatility)

	return &indicator, nil
}
