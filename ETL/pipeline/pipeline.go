// Package pipeline связывает задания пайплайна виральности: загрузку
// дневных метрик, пересчет индикаторов, финансирование и прогнозы.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/funding"
	"github.com/LilVoxy/virality_metrics/ETL/linear_regression"
	"github.com/LilVoxy/virality_metrics/ETL/load"
	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/transform"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// Deps компоненты пайплайна
type Deps struct {
	Entities   extractors.EntityStore
	Extractor  *extractors.Extractor
	Loader     load.Loader
	Indicators *transform.IndicatorProcessor
	Funding    *funding.Tracker
	Forecasts  *linear_regression.RegressionProcessor
	RunLog     models.ETLLogRepository // может быть nil
	Logger     *utils.ETLLogger
	Now        func() time.Time
}

// Pipeline три независимые точки входа для планировщика
// плюс пересчет индикаторов
type Pipeline struct {
	Deps
}

// New создает пайплайн
func New(d Deps) *Pipeline {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = utils.NewNopLogger()
	}
	return &Pipeline{Deps: d}
}

type jobFunc func(ctx context.Context) (models.JobResult, error)

// track записывает запуск в журнал и метрики
func (p *Pipeline) track(ctx context.Context, job string, fn jobFunc) (models.JobResult, error) {
	startTime := time.Now()
	runUUID := uuid.NewString()
	logger := p.Logger.With("job", job, "run_uuid", runUUID)
	logger.LogJobStart(job)

	var logID int64
	if p.RunLog != nil {
		id, err := p.RunLog.CreateLogEntry(ctx, job, runUUID, startTime)
		if err != nil {
			logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
		} else {
			logID = id
		}
	}

	result, err := fn(ctx)
	result.Job = job
	if err != nil {
		result = result.Fail(err)
		logger.Error("Задание %s завершилось с ошибкой: %v", job, err)
	}

	if p.RunLog != nil && logID != 0 {
		// Журнал пишется даже при отмене контекста задания
		if uerr := p.RunLog.UpdateLogEntry(context.WithoutCancel(ctx), logID, time.Now(), result); uerr != nil {
			logger.Error("Ошибка при обновлении записи в журнале ETL: %v", uerr)
		}
	}

	metrics.RecordJob(job, result.Success, time.Since(startTime).Seconds())
	if result.Success {
		logger.LogJobComplete(job, startTime, result.Count)
	}
	return result, err
}

// IngestDailyMetrics собирает показания по всем сущностям и пишет
// дневные агрегаты одной транзакцией, затем пересчитывает индикаторы
func (p *Pipeline) IngestDailyMetrics(ctx context.Context) (models.JobResult, error) {
	return p.track(ctx, models.JobIngest, p.ingest)
}

func (p *Pipeline) ingest(ctx context.Context) (models.JobResult, error) {
	result := models.JobResult{}
	today := utils.TruncateToDay(p.Now())

	collected, err := p.Extractor.Extract(ctx)
	if err != nil {
		return result, fmt.Errorf("ошибка в фазе Extract: %w", err)
	}

	rows, err := transform.BuildDailyMetrics(today, collected)
	if err != nil {
		return result, fmt.Errorf("ошибка в фазе Transform: %w", err)
	}

	if err := p.Loader.LoadDailyMetrics(ctx, rows); err != nil {
		return result, fmt.Errorf("ошибка в фазе Load: %w", err)
	}
	result.Count = len(rows)

	// Пересчет индикаторов не влияет на успех загрузки
	if p.Indicators != nil {
		for _, row := range rows {
			if _, err := p.Indicators.Recalculate(ctx, row.EntityID, today); err != nil {
				p.Logger.Warn("Не удалось пересчитать индикаторы сущности %d: %v", row.EntityID, err)
				result.Failed++
			}
		}
	}

	result.Success = true
	return result, nil
}

// RecalculateIndicators пересчитывает индикаторы всех сущностей на сегодня
func (p *Pipeline) RecalculateIndicators(ctx context.Context) (models.JobResult, error) {
	return p.track(ctx, models.JobIndicators, func(ctx context.Context) (models.JobResult, error) {
		result := models.JobResult{}
		today := utils.TruncateToDay(p.Now())

		entities, err := p.Entities.ListEntities(ctx)
		if err != nil {
			return result, fmt.Errorf("ошибка при получении сущностей: %w", err)
		}

		for _, e := range entities {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			indicator, err := p.Indicators.Recalculate(ctx, e.ID, today)
			switch {
			case err != nil:
				p.Logger.Warn("Не удалось пересчитать индикаторы %s: %v", e.Name, err)
				result.Failed++
			case indicator == nil:
				result.Skipped++
			default:
				result.Count++
			}
		}

		result.Success = true
		return result, nil
	})
}

// UpdateFundingData проверяет новые раунды финансирования
func (p *Pipeline) UpdateFundingData(ctx context.Context) (models.JobResult, error) {
	return p.track(ctx, models.JobFunding, p.Funding.UpdateFundingData)
}

// GenerateForecasts строит прогнозы на 30 дней
func (p *Pipeline) GenerateForecasts(ctx context.Context) (models.JobResult, error) {
	return p.track(ctx, models.JobForecast, p.Forecasts.Process)
}

// RunAll выполняет все задания последовательно. Ошибка одного задания
// не останавливает остальные.
func (p *Pipeline) RunAll(ctx context.Context) ([]models.JobResult, error) {
	jobs := []jobFunc{p.IngestDailyMetrics, p.UpdateFundingData, p.GenerateForecasts}

	results := make([]models.JobResult, 0, len(jobs))
	var firstErr error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := job(ctx)
		results = append(results, result)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}
