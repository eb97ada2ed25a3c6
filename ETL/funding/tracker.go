// Package funding отслеживает новые раунды финансирования сущностей.
package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// Tracker опрашивает источник финансирования по каждой сущности
type Tracker struct {
	entities extractors.EntityStore
	source   extractors.FundingSource
	store    FundingStore
	logger   *utils.ETLLogger
}

// NewTracker создает новый экземпляр Tracker
func NewTracker(entities extractors.EntityStore, source extractors.FundingSource, store FundingStore, logger *utils.ETLLogger) *Tracker {
	return &Tracker{
		entities: entities,
		source:   source,
		store:    store,
		logger:   logger,
	}
}

// UpdateFundingData проверяет новые раунды для всех сущностей.
// Сущности обрабатываются последовательно. Сбой источника считается
// отсутствием данных. Сбой записи логируется, пачка продолжается,
// а задание в итоге завершается с ошибкой.
func (t *Tracker) UpdateFundingData(ctx context.Context) (models.JobResult, error) {
	result := models.JobResult{Job: models.JobFunding}
	startTime := time.Now()

	entities, err := t.entities.ListEntities(ctx)
	if err != nil {
		err = fmt.Errorf("ошибка при получении сущностей: %w", err)
		return result.Fail(err), err
	}

	var firstErr error
	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return result.Fail(err), err
		}

		announcement, err := t.source.GetLatestRound(ctx, entity.Name)
		if err != nil {
			t.logger.Warn("Источник финансирования недоступен для %s: %v", entity.Name, err)
			metrics.RecordSourceFailure("funding")
			result.Skipped++
			continue
		}
		if announcement == nil {
			result.Skipped++
			continue
		}

		round := models.FundingRound{
			EntityID:    entity.ID,
			RoundType:   announcement.RoundType,
			Amount:      announcement.Amount,
			FundingDate: utils.TruncateToDay(announcement.Date),
			IsLatest:    true,
		}
		if err := t.store.ReplaceLatest(ctx, round); err != nil {
			t.logger.Error("Не удалось сохранить раунд для %s: %v", entity.Name, err)
			result.Failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		t.logger.Info("Новый раунд %s для %s: %.0f", round.RoundType, entity.Name, round.Amount)
		result.Count++
	}

	if firstErr != nil {
		err := fmt.Errorf("не удалось сохранить %d раунд(ов): %w", result.Failed, firstErr)
		return result.Fail(err), err
	}

	result.Success = true
	t.logger.Info("Обновление финансирования завершено. Новых раундов: %d, без изменений: %d. Длительность: %v",
		result.Count, result.Skipped, time.Since(startTime))

	return result, nil
}
