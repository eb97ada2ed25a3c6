package models

import (
	"time"
)

// ForecastPoint одна строка прогноза на (сущность, дата прогноза, тип метрики).
// Значения всегда неотрицательны.
type ForecastPoint struct {
	EntityID        int64      `json:"entity_id"`
	ForecastDate    time.Time  `json:"forecast_date"`
	MetricType      MetricType `json:"metric_type"`
	ForecastedValue float64    `json:"forecasted_value"`
	ConfidenceLower float64    `json:"confidence_lower"`
	ConfidenceUpper float64    `json:"confidence_upper"`
	ModelVersion    string     `json:"model_version"`
}
