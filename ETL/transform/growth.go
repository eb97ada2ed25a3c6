package transform

import (
	"math"
	"sort"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// Стандартные окна расчета роста (в днях)
const (
	Window7d  = 7
	Window30d = 30
)

// sortedCopy возвращает копию ряда, упорядоченную по возрастанию даты
func sortedCopy(series []models.SeriesPoint) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(series))
	copy(out, series)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// WindowSeries оставляет точки с датой >= (дата последней точки - windowDays).
// Если в окно попало меньше двух точек, возвращается только последняя точка.
// windowDays <= 0 означает весь ряд.
func WindowSeries(series []models.SeriesPoint, windowDays int) []models.SeriesPoint {
	if len(series) == 0 {
		return nil
	}

	sorted := sortedCopy(series)
	latest := sorted[len(sorted)-1]
	if windowDays <= 0 {
		return sorted
	}

	cutoff := latest.Date.AddDate(0, 0, -windowDays)
	window := make([]models.SeriesPoint, 0, len(sorted))
	for _, p := range sorted {
		if !p.Date.Before(cutoff) {
			window = append(window, p)
		}
	}

	if len(window) <= 1 {
		return []models.SeriesPoint{latest}
	}
	return window
}

// growthBetween процент изменения от первой до последней точки.
// Нулевое начальное значение и одна точка дают 0, никогда NaN/Inf.
func growthBetween(window []models.SeriesPoint) float64 {
	if len(window) < 2 {
		return 0
	}

	earliest := window[0]
	latest := window[len(window)-1]
	if earliest.Value == 0 {
		return 0
	}

	rate := (latest.Value - earliest.Value) / earliest.Value * 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return rate
}

// ComputeGrowthRate рассчитывает рост в процентах за последние windowDays дней.
// Для пустого ряда возвращает models.ErrNoData.
func ComputeGrowthRate(series []models.SeriesPoint, windowDays int) (float64, error) {
	if len(series) == 0 {
		return 0, models.ErrNoData
	}
	return growthBetween(WindowSeries(series, windowDays)), nil
}

// ComputeGrowthRateForRange рассчитывает рост за произвольный диапазон [from, to].
// Если в диапазон попало меньше двух точек, рост равен 0.
func ComputeGrowthRateForRange(series []models.SeriesPoint, from, to time.Time) (float64, error) {
	if len(series) == 0 {
		return 0, models.ErrNoData
	}

	window := make([]models.SeriesPoint, 0, len(series))
	for _, p := range sortedCopy(series) {
		if !p.Date.Before(from) && !p.Date.After(to) {
			window = append(window, p)
		}
	}

	return growthBetween(window), nil
}
