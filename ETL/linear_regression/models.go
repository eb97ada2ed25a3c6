package linear_regression

import (
	"context"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// DataPoint представляет точку данных для линейной регрессии
type DataPoint struct {
	X    float64   // Порядковый номер точки в истории (0..n-1)
	Y    float64   // Значение метрики за день
	Date time.Time // Фактическая дата
}

// RegressionResult содержит результаты линейной регрессии
type RegressionResult struct {
	A           float64     // Коэффициент наклона
	B           float64     // Сдвиг
	R           float64     // Коэффициент корреляции Пирсона
	R2          float64     // Коэффициент детерминации
	PeriodStart time.Time   // Начало анализируемого периода
	PeriodEnd   time.Time   // Конец анализируемого периода
	DataPoints  []DataPoint // Исходные точки данных
}

// N количество точек, по которым построена модель
func (r *RegressionResult) N() int {
	return len(r.DataPoints)
}

// BandMode способ построения доверительного интервала
type BandMode string

const (
	// BandFixed мультипликативный коридор value·(1±ratio)
	BandFixed BandMode = "fixed"
	// BandResidual интервал по остаточной дисперсии модели
	BandResidual BandMode = "residual"
)

// Band параметры доверительного интервала
type Band struct {
	Mode            BandMode
	Ratio           float64 // для BandFixed
	ConfidenceLevel float64 // для BandResidual (0.90, 0.95, 0.99)
}

// DefaultBand коридор ±20%
func DefaultBand() Band {
	return Band{Mode: BandFixed, Ratio: 0.2, ConfidenceLevel: 0.95}
}

// ForecastStep прогноз на день day после последней точки истории
type ForecastStep struct {
	Day           int
	ForecastValue float64 // Прогнозируемое значение
	CILower       float64 // Нижняя граница доверительного интервала
	CIUpper       float64 // Верхняя граница доверительного интервала
}

// PredictionRepository интерфейс для работы с хранилищем прогнозов
type PredictionRepository interface {
	// SaveForecasts сохраняет прогнозы в одной транзакции (upsert)
	SaveForecasts(ctx context.Context, forecasts []models.ForecastPoint) error

	// GetForecasts получает прогнозы сущности по типу метрики
	GetForecasts(ctx context.Context, entityID int64, metricType models.MetricType) ([]models.ForecastPoint, error)

	// DeleteOldPredictions удаляет устаревшие прогнозы (дата прогноза раньше olderThan)
	DeleteOldPredictions(ctx context.Context, olderThan time.Time) (int64, error)
}
