package linear_regression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/config"
	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// Config конфигурация процессора линейной регрессии
type Config struct {
	// Сколько последних дней истории брать в модель
	HistoryLimit int
	// Минимум точек, при котором строится прогноз
	MinPoints int
	// Количество дней для прогноза
	ForecastDays int
	// Доверительный интервал
	Band Band
	// Минимальное значение r² для признания модели значимой
	MinR2Threshold float64
	// Метка версии модели
	ModelVersion string
	// Сколько дней хранить прогнозы с прошедшей датой
	RetentionDays int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return ConfigFromPipeline(config.DefaultPipelineConfig.Forecast)
}

// ConfigFromPipeline переносит параметры из конфигурации пайплайна
func ConfigFromPipeline(c config.ForecastConfig) Config {
	band := DefaultBand()
	band.Mode = BandMode(c.BandMode)
	band.Ratio = c.BandRatio

	return Config{
		HistoryLimit:   c.HistoryLimit,
		MinPoints:      c.MinPoints,
		ForecastDays:   c.HorizonDays,
		Band:           band,
		MinR2Threshold: c.MinR2Threshold,
		ModelVersion:   c.ModelVersion,
		RetentionDays:  c.RetentionDays,
	}
}

// RegressionProcessor процессор линейной регрессии
type RegressionProcessor struct {
	entities    extractors.EntityStore
	dataService *DataService
	repository  PredictionRepository
	logger      *utils.ETLLogger
	config      Config
	now         func() time.Time
}

// NewRegressionProcessor создает новый процессор линейной регрессии
func NewRegressionProcessor(
	entities extractors.EntityStore,
	dataService *DataService,
	repository PredictionRepository,
	logger *utils.ETLLogger,
	config Config,
	now func() time.Time,
) *RegressionProcessor {
	if now == nil {
		now = time.Now
	}
	return &RegressionProcessor{
		entities:    entities,
		dataService: dataService,
		repository:  repository,
		logger:      logger,
		config:      config,
		now:         now,
	}
}

// ForecastEntity строит прогнозы по всем отслеживаемым метрикам сущности.
// Возвращает models.ErrInsufficientHistory, если истории меньше MinPoints.
func (p *RegressionProcessor) ForecastEntity(ctx context.Context, entityID int64, today time.Time) ([]models.ForecastPoint, error) {
	history, err := p.dataService.GetHistory(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if len(history) < p.config.MinPoints {
		return nil, fmt.Errorf("%w: сущность %d, точек %d < %d",
			models.ErrInsufficientHistory, entityID, len(history), p.config.MinPoints)
	}

	var points []models.ForecastPoint
	for _, metricType := range models.TrackedMetricTypes {
		result, err := LinearRegression(GetDataPoints(history, metricType))
		if err != nil {
			return nil, fmt.Errorf("ошибка при построении модели %s для сущности %d: %w", metricType, entityID, err)
		}

		if result.R2 < p.config.MinR2Threshold {
			p.logger.Debug("Низкое качество модели %s для сущности %d (R²=%.3f < %.3f). Однако прогноз будет сделан.",
				metricType, entityID, result.R2, p.config.MinR2Threshold)
		}

		for _, step := range GenerateForecasts(result, p.config.ForecastDays, p.config.Band) {
			points = append(points, models.ForecastPoint{
				EntityID:        entityID,
				ForecastDate:    today.AddDate(0, 0, step.Day),
				MetricType:      metricType,
				ForecastedValue: step.ForecastValue,
				ConfidenceLower: step.CILower,
				ConfidenceUpper: step.CIUpper,
				ModelVersion:    p.config.ModelVersion,
			})
		}
	}

	return points, nil
}

// Process строит прогнозы для всех сущностей и сохраняет их одним upsert.
// Ошибка одной сущности логируется и не останавливает пачку, но задание
// в итоге завершается с первой такой ошибкой.
func (p *RegressionProcessor) Process(ctx context.Context) (models.JobResult, error) {
	result := models.JobResult{Job: models.JobForecast}
	startTime := time.Now()
	today := utils.TruncateToDay(p.now())

	p.logger.Info("Запуск построения прогнозов (история: %d дней, горизонт: %d дней, интервал: %s)",
		p.config.HistoryLimit, p.config.ForecastDays, p.config.Band.Mode)

	entities, err := p.entities.ListEntities(ctx)
	if err != nil {
		err = fmt.Errorf("ошибка при получении сущностей: %w", err)
		return result.Fail(err), err
	}

	var (
		forecasts []models.ForecastPoint
		firstErr  error
	)
	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return result.Fail(err), err
		}

		points, err := p.ForecastEntity(ctx, entity.ID, today)
		if errors.Is(err, models.ErrInsufficientHistory) {
			p.logger.Debug("Пропуск %s: %v", entity.Name, err)
			result.Skipped++
			continue
		}
		if err != nil {
			p.logger.Error("Не удалось построить прогноз для %s: %v", entity.Name, err)
			result.Failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		forecasts = append(forecasts, points...)
	}

	p.logger.Info("Сохранение %d прогнозов в базу данных", len(forecasts))
	if err := p.repository.SaveForecasts(ctx, forecasts); err != nil {
		err = fmt.Errorf("ошибка при сохранении прогнозов: %w", err)
		return result.Fail(err), err
	}

	if p.config.RetentionDays > 0 {
		deleteOlderThan := today.AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.repository.DeleteOldPredictions(ctx, deleteOlderThan)
		if err != nil {
			// Некритическая ошибка, просто логируем
			p.logger.Warn("Не удалось удалить устаревшие прогнозы: %v", err)
		} else if deleted > 0 {
			p.logger.Info("Удалено устаревших прогнозов: %d", deleted)
		}
	}

	result.Count = len(forecasts)
	if firstErr != nil {
		err := fmt.Errorf("не удалось построить прогноз для %d сущност(ей): %w", result.Failed, firstErr)
		return result.Fail(err), err
	}

	result.Success = true
	p.logger.Info("Построение прогнозов завершено. Время выполнения: %v", time.Since(startTime))
	return result, nil
}
