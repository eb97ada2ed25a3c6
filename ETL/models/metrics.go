package models

import (
	"time"
)

// DailyMetric одна строка на (сущность, календарная дата).
// Повторная загрузка за ту же дату перезаписывает строку.
type DailyMetric struct {
	EntityID        int64     `json:"entity_id"`
	MetricDate      time.Time `json:"metric_date"`
	WebsiteVirality float64   `json:"website_virality"`
	VideoVirality   float64   `json:"video_virality"`
	SocialVirality  float64   `json:"social_virality"`
	Volume          float64   `json:"volume"`
	TotalVirality   float64   `json:"total_virality"`
	RawReadings     []byte    `json:"-"` // сжатый snappy JSON исходных показаний
}

// CombinedVirality суммарная виральность по всем каналам
func (m DailyMetric) CombinedVirality() float64 {
	return m.WebsiteVirality + m.VideoVirality + m.SocialVirality
}

// Value возвращает значение метрики указанного типа
func (m DailyMetric) Value(metricType MetricType) float64 {
	switch metricType {
	case MetricWebsite:
		return m.WebsiteVirality
	case MetricVideo:
		return m.VideoVirality
	case MetricSocial:
		return m.SocialVirality
	case MetricVolume:
		return m.Volume
	default:
		if m.TotalVirality == 0 {
			return m.CombinedVirality()
		}
		return m.TotalVirality
	}
}

// MetricType тип прогнозируемой метрики
type MetricType string

const (
	MetricWebsite MetricType = "website"
	MetricVideo   MetricType = "video"
	MetricSocial  MetricType = "social"
	MetricTotal   MetricType = "total"
	MetricVolume  MetricType = "volume"
)

// TrackedMetricTypes метрики, для которых строятся прогнозы
var TrackedMetricTypes = []MetricType{MetricWebsite, MetricVideo, MetricSocial, MetricTotal, MetricVolume}

// ParseMetricType проверяет название метрики
func ParseMetricType(s string) (MetricType, bool) {
	for _, t := range TrackedMetricTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// SeriesPoint точка временного ряда (дата, значение)
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series строит временной ряд выбранной метрики из строк DailyMetric
func Series(metrics []DailyMetric, metricType MetricType) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(metrics))
	for _, m := range metrics {
		points = append(points, SeriesPoint{Date: m.MetricDate, Value: m.Value(metricType)})
	}
	return points
}

// Trajectory категория траектории роста
type Trajectory string

const (
	TrajectoryExploding Trajectory = "exploding"
	TrajectoryRegular   Trajectory = "regular"
	TrajectoryPeaked    Trajectory = "peaked"
)

// Speed категория ускорения роста
type Speed string

const (
	SpeedExponential Speed = "exponential"
	SpeedConstant    Speed = "constant"
	SpeedStationary  Speed = "stationary"
)

// Volatility категория стабильности роста
type Volatility string

const (
	VolatilityHigh    Volatility = "high"
	VolatilityAverage Volatility = "average"
	VolatilityLow     Volatility = "low"
)

// ViralityIndicator сводка поведения роста на дату
type ViralityIndicator struct {
	EntityID      int64      `json:"entity_id"`
	IndicatorDate time.Time  `json:"indicator_date"`
	GrowthRate7d  float64    `json:"growth_rate_7d"`
	GrowthRate30d float64    `json:"growth_rate_30d"`
	Trajectory    Trajectory `json:"growth_indicator"`
	Speed         Speed      `json:"speed_indicator"`
	Volatility    Volatility `json:"volatility"`
}
