package ranking

import (
	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// EntitySummary материализованная сводка по сущности:
// сущность + последняя метрика + последний индикатор + последний раунд
type EntitySummary struct {
	EntityID            int64             `json:"entity_id"`
	Name                string            `json:"name"`
	Categories          []string          `json:"categories"`
	Volume              float64           `json:"volume"`
	TotalVirality       float64           `json:"total_virality"`
	GrowthRate7d        float64           `json:"growth_rate_7d"`
	GrowthRate30d       float64           `json:"growth_rate_30d"`
	Trajectory          models.Trajectory `json:"trajectory,omitempty"`
	Speed               models.Speed      `json:"speed,omitempty"`
	Volatility          models.Volatility `json:"volatility,omitempty"`
	LatestFundingAmount float64           `json:"latest_funding_amount"`
	LatestRoundType     string            `json:"latest_round_type,omitempty"`
	Score               float64           `json:"score"`
}

// RoundSeriesCPlus особое значение фильтра: Series C и любой более поздний раунд
const RoundSeriesCPlus = "Series C/+"

// Filters независимые необязательные предикаты, объединяются по AND.
// nil или пустая строка означает, что фильтр не задан.
type Filters struct {
	Category    string   `json:"category,omitempty"`
	MinGrowth   *float64 `json:"min_growth,omitempty"`
	MinVolume   *float64 `json:"min_volume,omitempty"`
	MinVirality *float64 `json:"min_virality,omitempty"`
	// Отрицательное значение означает "финансирование < |MinFunding|"
	MinFunding *float64 `json:"min_funding,omitempty"`
	MaxFunding *float64 `json:"max_funding,omitempty"`
	RoundType  string   `json:"round_type,omitempty"`
}

// QueryContext параметры одного запроса к слою фильтрации
type QueryContext struct {
	Filters Filters
	// TimeframeDays окно пересчета роста, 0 - хранимый рост за 30 дней
	TimeframeDays int
	// Limit ограничивает размер результата, 0 - без ограничения
	Limit int
}

// Float возвращает указатель на значение, удобно для заполнения Filters
func Float(v float64) *float64 {
	return &v
}
