package extractors

import (
	"context"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// FundingSource источник данных о раундах финансирования.
// Возвращает nil, если нового раунда нет.
type FundingSource interface {
	GetLatestRound(ctx context.Context, entityName string) (*models.FundingAnnouncement, error)
}

// StaticFundingSource возвращает заранее заданные раунды по имени сущности
type StaticFundingSource struct {
	Rounds map[string]*models.FundingAnnouncement
	Errors map[string]error
}

// GetLatestRound возвращает заданный раунд, ошибку или nil
func (s *StaticFundingSource) GetLatestRound(_ context.Context, entityName string) (*models.FundingAnnouncement, error) {
	if err, ok := s.Errors[entityName]; ok {
		return nil, err
	}
	return s.Rounds[entityName], nil
}

// DeterministicFundingSource заглушка внешнего API финансирования:
// примерно для 5% пар (сущность, день) сообщает о новом раунде
type DeterministicFundingSource struct {
	now func() time.Time
}

// NewDeterministicFundingSource создает источник
func NewDeterministicFundingSource(now func() time.Time) *DeterministicFundingSource {
	if now == nil {
		now = time.Now
	}
	return &DeterministicFundingSource{now: now}
}

var fundingRoundTypes = []string{"Seed", "Series A", "Series B", "Series C"}

// GetLatestRound возвращает раунд или nil
func (s *DeterministicFundingSource) GetLatestRound(ctx context.Context, entityName string) (*models.FundingAnnouncement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	day := s.now().UTC()
	key := day.Format("2006-01-02")
	if hashMod("funding", entityName, key)%100 >= 5 {
		return nil, nil
	}

	h := hashMod("funding-details", entityName, key)
	return &models.FundingAnnouncement{
		RoundType: fundingRoundTypes[h%uint64(len(fundingRoundTypes))],
		Amount:    float64(10_000_000 + (h/7)%100_000_000),
		Date:      time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
	}, nil
}
