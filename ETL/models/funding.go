package models

import (
	"time"
)

// FundingRound один объявленный раунд финансирования.
// Для каждой сущности не более одной строки с IsLatest = true.
type FundingRound struct {
	ID          int64     `json:"id"`
	EntityID    int64     `json:"entity_id"`
	RoundType   string    `json:"round_type"`
	Amount      float64   `json:"amount"`
	FundingDate time.Time `json:"funding_date"`
	IsLatest    bool      `json:"is_latest"`
}

// FundingAnnouncement новый раунд, полученный из источника финансирования
type FundingAnnouncement struct {
	RoundType string
	Amount    float64
	Date      time.Time
}
