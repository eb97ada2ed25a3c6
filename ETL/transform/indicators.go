package transform

import (
	"math"

	"github.com/LilVoxy/virality_metrics/ETL/config"
	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// Thresholds пороги классификации роста (в процентных пунктах).
//
//   - Trajectory: рост за 30 дней > ExplodingGrowth -> exploding,
//     > RegularGrowth -> regular, иначе peaked.
//   - Speed: |рост 7д| и |рост 30д| < StationaryBand -> stationary;
//     exploding или рост за 7 дней >= AccelerationRatio * (рост 30д * 7/30) -> exponential;
//     иначе constant.
//   - Volatility: отклонение роста за 7 дней от недельного темпа 30-дневного роста
//     >= HighVolatility -> high, <= LowVolatility -> low, иначе average.
type Thresholds struct {
	ExplodingGrowth   float64
	RegularGrowth     float64
	AccelerationRatio float64
	StationaryBand    float64
	HighVolatility    float64
	LowVolatility     float64
}

// DefaultThresholds пороги по умолчанию
func DefaultThresholds() Thresholds {
	return ThresholdsFromConfig(config.DefaultPipelineConfig.Indicators)
}

// ThresholdsFromConfig переносит пороги из конфигурации
func ThresholdsFromConfig(c config.IndicatorConfig) Thresholds {
	return Thresholds{
		ExplodingGrowth:   c.ExplodingGrowth,
		RegularGrowth:     c.RegularGrowth,
		AccelerationRatio: c.AccelerationRatio,
		StationaryBand:    c.StationaryBand,
		HighVolatility:    c.HighVolatility,
		LowVolatility:     c.LowVolatility,
	}
}

// Classification категориальные индикаторы роста
type Classification struct {
	Trajectory models.Trajectory
	Speed      models.Speed
	Volatility models.Volatility
}

// weeklyPace недельный темп, соответствующий 30-дневному росту
func weeklyPace(growth30d float64) float64 {
	return growth30d * Window7d / Window30d
}

// ClassifyTrajectory траектория роста по 30-дневному росту
func ClassifyTrajectory(growth30d float64, t Thresholds) models.Trajectory {
	switch {
	case growth30d > t.ExplodingGrowth:
		return models.TrajectoryExploding
	case growth30d > t.RegularGrowth:
		return models.TrajectoryRegular
	default:
		return models.TrajectoryPeaked
	}
}

// ClassifySpeed ускорение роста: сравнение короткого окна с длинным
func ClassifySpeed(growth7d, growth30d float64, t Thresholds) models.Speed {
	if math.Abs(growth7d) < t.StationaryBand && math.Abs(growth30d) < t.StationaryBand {
		return models.SpeedStationary
	}

	if ClassifyTrajectory(growth30d, t) == models.TrajectoryExploding {
		return models.SpeedExponential
	}

	pace := weeklyPace(growth30d)
	if growth7d > 0 && (pace <= 0 || growth7d >= t.AccelerationRatio*pace) {
		return models.SpeedExponential
	}

	return models.SpeedConstant
}

// ClassifyVolatility стабильность роста
func ClassifyVolatility(growth7d, growth30d float64, t Thresholds) models.Volatility {
	deviation := math.Abs(growth7d - weeklyPace(growth30d))
	switch {
	case deviation >= t.HighVolatility:
		return models.VolatilityHigh
	case deviation <= t.LowVolatility:
		return models.VolatilityLow
	default:
		return models.VolatilityAverage
	}
}

// ClassifyIndicators чистая функция от (рост 7д, рост 30д)
func ClassifyIndicators(growth7d, growth30d float64, t Thresholds) Classification {
	return Classification{
		Trajectory: ClassifyTrajectory(growth30d, t),
		Speed:      ClassifySpeed(growth7d, growth30d, t),
		Volatility: ClassifyVolatility(growth7d, growth30d, t),
	}
}
