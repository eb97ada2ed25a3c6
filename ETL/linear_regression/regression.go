package linear_regression

import (
	"fmt"
	"math"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// RoundToThousandth округляет число до тысячных (3 знака после запятой)
func RoundToThousandth(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// LinearRegression выполняет расчет линейной регрессии методом наименьших квадратов.
// Независимая переменная - X точки (порядковый индекс), зависимая - Y.
func LinearRegression(points []DataPoint) (*RegressionResult, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: для расчета линейной регрессии требуется минимум 2 точки, получено: %d",
			models.ErrInsufficientHistory, len(points))
	}

	minDate := points[0].Date
	maxDate := points[0].Date
	for _, p := range points {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}
		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	// a = (n*sum(x*y) - sum(x)*sum(y)) / (n*sum(x^2) - (sum(x))^2)
	// b = (sum(y) - a*sum(x)) / n
	n := float64(len(points))
	sumX := 0.0
	sumY := 0.0
	sumXY := 0.0
	sumX2 := 0.0
	sumY2 := 0.0

	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumX2 += p.X * p.X
		sumY2 += p.Y * p.Y
	}

	denominator := n*sumX2 - sumX*sumX
	if math.Abs(denominator) < 1e-10 {
		return nil, fmt.Errorf("все X одинаковы, невозможно вычислить наклон")
	}

	a := (n*sumXY - sumX*sumY) / denominator
	b := (sumY - a*sumX) / n

	// r = (n*sum(x*y) - sum(x)*sum(y)) / sqrt[(n*sum(x^2) - (sum(x))^2) * (n*sum(y^2) - (sum(y))^2)]
	numerator := n*sumXY - sumX*sumY
	denominator = math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))

	var r float64
	if math.Abs(denominator) < 1e-10 || math.IsNaN(denominator) {
		r = 0 // все Y одинаковы
	} else {
		r = numerator / denominator
	}

	// Коэффициенты не округляются: прогноз уходит на 30 дней вперед
	return &RegressionResult{
		A:           a,
		B:           b,
		R:           RoundToThousandth(r),
		R2:          RoundToThousandth(r * r),
		PeriodStart: minDate,
		PeriodEnd:   maxDate,
		DataPoints:  points,
	}, nil
}

// IndexPoints строит точки регрессии из ряда, X = индекс точки
func IndexPoints(series []models.SeriesPoint) []DataPoint {
	points := make([]DataPoint, len(series))
	for i, s := range series {
		points[i] = DataPoint{X: float64(i), Y: s.Value, Date: s.Date}
	}
	return points
}

// Predict прогнозирует значение Y для заданного X
func Predict(result *RegressionResult, x float64) float64 {
	return result.A*x + result.B
}

// ValueAt прогноз на day дней после последней точки: max(0, b + a*(n+day))
func ValueAt(result *RegressionResult, day int) float64 {
	return math.Max(0, Predict(result, float64(result.N()+day)))
}

// CalculateConfidenceInterval вычисляет доверительный интервал для прогноза
// на основе стандартной ошибки и уровня значимости
func CalculateConfidenceInterval(result *RegressionResult, x float64, confidenceLevel float64) (float64, float64) {
	n := float64(len(result.DataPoints))
	yPred := Predict(result, x)
	if n <= 2 {
		return yPred, yPred
	}

	meanX := 0.0
	for _, p := range result.DataPoints {
		meanX += p.X
	}
	meanX /= n

	sumSqDevX := 0.0
	sumSqResiduals := 0.0
	for _, p := range result.DataPoints {
		predY := Predict(result, p.X)
		sumSqDevX += (p.X - meanX) * (p.X - meanX)
		sumSqResiduals += (p.Y - predY) * (p.Y - predY)
	}

	standardError := math.Sqrt(sumSqResiduals / (n - 2))

	// Приближение t ≈ 2 для 95% при n >= 30
	tStat := 2.0
	if confidenceLevel == 0.99 {
		tStat = 2.58
	} else if confidenceLevel == 0.90 {
		tStat = 1.64
	}

	predictionStdError := standardError * math.Sqrt(1+1/n+(x-meanX)*(x-meanX)/sumSqDevX)
	margin := tStat * predictionStdError

	return yPred - margin, yPred + margin
}

// bandAt границы интервала для дня day, всегда lower <= value <= upper и >= 0
func bandAt(result *RegressionResult, day int, value float64, band Band) (float64, float64) {
	switch band.Mode {
	case BandResidual:
		lower, upper := CalculateConfidenceInterval(result, float64(result.N()+day), band.ConfidenceLevel)
		return math.Max(0, math.Min(lower, value)), math.Max(value, upper)
	default:
		return math.Max(0, value*(1-band.Ratio)), math.Max(0, value*(1+band.Ratio))
	}
}

// GenerateForecasts генерирует прогнозы на days дней вперед (day = 1..days)
func GenerateForecasts(result *RegressionResult, days int, band Band) []ForecastStep {
	if days <= 0 {
		return nil
	}

	forecasts := make([]ForecastStep, days)
	for i := 0; i < days; i++ {
		day := i + 1
		value := ValueAt(result, day)
		lower, upper := bandAt(result, day, value, band)

		forecasts[i] = ForecastStep{
			Day:           day,
			ForecastValue: RoundToThousandth(value),
			CILower:       RoundToThousandth(lower),
			CIUpper:       RoundToThousandth(upper),
		}
	}

	return forecasts
}
