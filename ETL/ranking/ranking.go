// Package ranking фильтрует и ранжирует сводки сущностей по виральности.
package ranking

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

var seriesRoundPattern = regexp.MustCompile(`(?i)Series\s+([A-Z])\b`)

// RoundToThousandth округляет число до тысячных (3 знака после запятой)
func RoundToThousandth(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// ViralityScore log10(volume+1) * log10(growth+1) * 10.
// Неположительный объем или рост дает 0.
func ViralityScore(volume, growthRate float64) float64 {
	if volume <= 0 || growthRate <= 0 {
		return 0
	}
	score := math.Log10(volume+1) * math.Log10(growthRate+1) * 10
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return RoundToThousandth(score)
}

// IsSeriesCOrLater проверяет, что раунд вида "Series <буква>" с буквой >= C
func IsSeriesCOrLater(roundType string) bool {
	m := seriesRoundPattern.FindStringSubmatch(roundType)
	if m == nil {
		return false
	}
	return strings.ToUpper(m[1]) >= "C"
}

// MatchRoundType сравнивает раунд с фильтром
func MatchRoundType(roundType, filter string) bool {
	if filter == "" {
		return true
	}
	if filter == RoundSeriesCPlus {
		return IsSeriesCOrLater(roundType)
	}
	return roundType == filter
}

// matchFunding применяет MinFunding (с отрицательным соглашением) и MaxFunding
func matchFunding(amount float64, f Filters) bool {
	if f.MinFunding != nil && *f.MinFunding != 0 {
		if *f.MinFunding < 0 {
			if amount >= math.Abs(*f.MinFunding) {
				return false
			}
		} else if amount < *f.MinFunding {
			return false
		}
	}
	if f.MaxFunding != nil && amount > *f.MaxFunding {
		return false
	}
	return true
}

// Matches проверяет сводку на соответствие всем заданным фильтрам
func (f Filters) Matches(s EntitySummary) bool {
	if f.Category != "" && !models.HasCategory(s.Categories, f.Category) {
		return false
	}
	if f.MinGrowth != nil && s.GrowthRate30d < *f.MinGrowth {
		return false
	}
	if f.MinVolume != nil && s.Volume < *f.MinVolume {
		return false
	}
	if f.MinVirality != nil && s.TotalVirality < *f.MinVirality {
		return false
	}
	if !matchFunding(s.LatestFundingAmount, f) {
		return false
	}
	return MatchRoundType(s.LatestRoundType, f.RoundType)
}

// RankAndFilter применяет фильтры и сортирует по убыванию оценки,
// при равной оценке по имени. Входной срез не изменяется.
func RankAndFilter(qc QueryContext, entities []EntitySummary) []EntitySummary {
	result := make([]EntitySummary, 0, len(entities))
	for _, e := range entities {
		if !qc.Filters.Matches(e) {
			continue
		}
		e.Score = ViralityScore(e.Volume, e.GrowthRate30d)
		result = append(result, e)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Name < result[j].Name
	})

	if qc.Limit > 0 && len(result) > qc.Limit {
		result = result[:qc.Limit]
	}
	return result
}
