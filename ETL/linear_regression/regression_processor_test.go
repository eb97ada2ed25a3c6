package linear_regression

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

type fakeHistory struct {
	rows map[int64][]models.DailyMetric
	errs map[int64]error
}

func (f *fakeHistory) GetRecentMetrics(_ context.Context, entityID int64, limit int) ([]models.DailyMetric, error) {
	if err := f.errs[entityID]; err != nil {
		return nil, err
	}
	rows := f.rows[entityID]
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}

// memoryPredictions хранит прогнозы по ключу (сущность, дата, метрика)
type memoryPredictions struct {
	rows      map[string]models.ForecastPoint
	saveCalls int
	deleted   []time.Time
	saveErr   error
}

func newMemoryPredictions() *memoryPredictions {
	return &memoryPredictions{rows: make(map[string]models.ForecastPoint)}
}

func forecastKey(f models.ForecastPoint) string {
	return fmt.Sprintf("%d|%s|%s", f.EntityID, f.ForecastDate.Format(utils.DateLayout), f.MetricType)
}

func (m *memoryPredictions) SaveForecasts(_ context.Context, forecasts []models.ForecastPoint) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, f := range forecasts {
		m.rows[forecastKey(f)] = f
	}
	return nil
}

func (m *memoryPredictions) GetForecasts(_ context.Context, entityID int64, metricType models.MetricType) ([]models.ForecastPoint, error) {
	var out []models.ForecastPoint
	for _, f := range m.rows {
		if f.EntityID == entityID && f.MetricType == metricType {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryPredictions) DeleteOldPredictions(_ context.Context, olderThan time.Time) (int64, error) {
	m.deleted = append(m.deleted, olderThan)
	return 0, nil
}

func linearHistory(entityID int64, days int) []models.DailyMetric {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.DailyMetric, days)
	for i := range rows {
		rows[i] = models.DailyMetric{
			EntityID:        entityID,
			MetricDate:      start.AddDate(0, 0, i),
			WebsiteVirality: 1000 + float64(i)*10,
			VideoVirality:   500 + float64(i%3),
			SocialVirality:  800 - float64(i)*5,
			Volume:          100000 + float64(i)*1000,
		}
	}
	return rows
}

func newTestProcessor(repo PredictionRepository) *RegressionProcessor {
	entities := &extractors.StaticEntityStore{Entities: []models.Entity{
		{ID: 1, Name: "Acme"},
		{ID: 2, Name: "Newcomer"},
	}}
	history := &fakeHistory{rows: map[int64][]models.DailyMetric{
		1: linearHistory(1, 120),
		2: linearHistory(2, 10),
	}}
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	cfg := DefaultConfig()
	return NewRegressionProcessor(entities, NewDataService(history, cfg.HistoryLimit), repo, utils.NewNopLogger(), cfg, now)
}

func TestProcessSkipsShortHistory(t *testing.T) {
	repo := newMemoryPredictions()
	p := newTestProcessor(repo)

	result, err := p.Process(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, models.JobForecast, result.Job)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 30*len(models.TrackedMetricTypes), result.Count)
	assert.Equal(t, 1, repo.saveCalls)

	for _, f := range repo.rows {
		assert.Equal(t, int64(1), f.EntityID)
		assert.Equal(t, "simple_linear_v1", f.ModelVersion)
		assert.GreaterOrEqual(t, f.ForecastedValue, 0.0)
		assert.LessOrEqual(t, f.ConfidenceLower, f.ForecastedValue)
		assert.LessOrEqual(t, f.ForecastedValue, f.ConfidenceUpper)
	}

	require.Len(t, repo.deleted, 1)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), repo.deleted[0])
}

func TestProcessIsIdempotent(t *testing.T) {
	repo := newMemoryPredictions()
	p := newTestProcessor(repo)

	_, err := p.Process(context.Background())
	require.NoError(t, err)
	snapshot := make(map[string]models.ForecastPoint, len(repo.rows))
	for k, v := range repo.rows {
		snapshot[k] = v
	}

	_, err = p.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, snapshot, repo.rows)
}

func TestForecastEntityDates(t *testing.T) {
	p := newTestProcessor(newMemoryPredictions())
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	points, err := p.ForecastEntity(context.Background(), 1, today)
	require.NoError(t, err)
	require.Len(t, points, 30*len(models.TrackedMetricTypes))

	assert.Equal(t, models.MetricWebsite, points[0].MetricType)
	assert.Equal(t, today.AddDate(0, 0, 1), points[0].ForecastDate)
	assert.Equal(t, today.AddDate(0, 0, 30), points[29].ForecastDate)

	// в модель попадают последние 90 из 120 дней: y = 1300 + 10*j, день 1 это j = 91
	assert.InDelta(t, 1300+10*91, points[0].ForecastedValue, 1e-6)

	_, err = p.ForecastEntity(context.Background(), 2, today)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestProcessSaveError(t *testing.T) {
	repo := newMemoryPredictions()
	repo.saveErr = errors.New("deadlock")
	p := newTestProcessor(repo)

	result, err := p.Process(context.Background())
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "deadlock")
}

func TestProcessContinuesAfterEntityFailure(t *testing.T) {
	entities := &extractors.StaticEntityStore{Entities: []models.Entity{
		{ID: 1, Name: "Acme"},
		{ID: 2, Name: "Globex"},
		{ID: 3, Name: "Initech"},
	}}
	history := &fakeHistory{
		rows: map[int64][]models.DailyMetric{
			1: linearHistory(1, 60),
			3: linearHistory(3, 60),
		},
		errs: map[int64]error{2: errors.New("read timeout")},
	}
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	cfg := DefaultConfig()
	repo := newMemoryPredictions()
	p := NewRegressionProcessor(entities, NewDataService(history, cfg.HistoryLimit), repo, utils.NewNopLogger(), cfg, now)

	result, err := p.Process(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read timeout")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2*30*len(models.TrackedMetricTypes), result.Count)
	assert.Equal(t, 1, repo.saveCalls)

	saved := map[int64]int{}
	for _, f := range repo.rows {
		saved[f.EntityID]++
	}
	assert.Equal(t, map[int64]int{
		1: 30 * len(models.TrackedMetricTypes),
		3: 30 * len(models.TrackedMetricTypes),
	}, saved)
}
