package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/ranking"
	"github.com/LilVoxy/virality_metrics/ETL/transform"
	"github.com/LilVoxy/virality_metrics/database"
)

type fakeSummaries struct {
	last ranking.QueryContext
	data []ranking.EntitySummary
	err  error
}

func (f *fakeSummaries) Query(_ context.Context, qc ranking.QueryContext) ([]ranking.EntitySummary, error) {
	f.last = qc
	if f.err != nil {
		return nil, f.err
	}
	return ranking.RankAndFilter(qc, f.data), nil
}

type fakeStore struct {
	entities  map[int64]models.Entity
	tracked   map[string][]int64
	metrics   []models.DailyMetric
	from, to  time.Time
	forecasts map[models.MetricType][]models.ForecastPoint
	rounds    []models.FundingRound
	runs      []models.ETLRunLog
	runsLimit int
	monitors  map[string]*models.ETLStateMonitor
	err       error
}

func (f *fakeStore) GetEntity(_ context.Context, id int64) (*models.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entities[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &e, nil
}

func (f *fakeStore) GetMetricRange(_ context.Context, _ int64, from, to time.Time) ([]models.DailyMetric, error) {
	f.from, f.to = from, to
	return f.metrics, f.err
}

func (f *fakeStore) GetForecasts(_ context.Context, _ int64, metricType models.MetricType) ([]models.ForecastPoint, error) {
	return f.forecasts[metricType], f.err
}

func (f *fakeStore) ListRounds(context.Context, int64) ([]models.FundingRound, error) {
	return f.rounds, f.err
}

func (f *fakeStore) TrackEntity(_ context.Context, userID string, entityID int64) error {
	for _, id := range f.tracked[userID] {
		if id == entityID {
			return nil
		}
	}
	f.tracked[userID] = append(f.tracked[userID], entityID)
	return nil
}

func (f *fakeStore) UntrackEntity(_ context.Context, userID string, entityID int64) error {
	ids := f.tracked[userID][:0]
	for _, id := range f.tracked[userID] {
		if id != entityID {
			ids = append(ids, id)
		}
	}
	f.tracked[userID] = ids
	return nil
}

func (f *fakeStore) ListTracked(_ context.Context, userID string) ([]models.Entity, error) {
	var out []models.Entity
	for _, id := range f.tracked[userID] {
		out = append(out, f.entities[id])
	}
	return out, nil
}

func (f *fakeStore) ListRecentRuns(_ context.Context, limit int) ([]models.ETLRunLog, error) {
	f.runsLimit = limit
	return f.runs, f.err
}

func (f *fakeStore) GetStateMonitor(_ context.Context, job string) (*models.ETLStateMonitor, error) {
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.monitors[job]; ok {
		return m, nil
	}
	return &models.ETLStateMonitor{Job: job}, nil
}

var apiNow = time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

func newTestRouter(summaries *fakeSummaries, store *fakeStore) *mux.Router {
	router := mux.NewRouter()
	SetupRoutes(router, &API{
		Summaries: summaries,
		Entities:  store,
		Metrics:   store,
		Forecasts: store,
		Funding:   store,
		Tracking:  store,
		Runs:      store,
		Now:       func() time.Time { return apiNow },
	}, nil)
	return router
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities: map[int64]models.Entity{
			1: {ID: 1, Name: "Acme"},
			2: {ID: 2, Name: "Globex"},
		},
		tracked: make(map[string][]int64),
	}
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetEntitiesHandler(t *testing.T) {
	summaries := &fakeSummaries{data: []ranking.EntitySummary{
		{EntityID: 1, Name: "Rocket", Volume: 1_000_000, GrowthRate30d: 50, LatestFundingAmount: 2_000_000},
		{EntityID: 2, Name: "Steady", Volume: 1_000_000, GrowthRate30d: 5, LatestFundingAmount: 50_000_000},
	}}
	router := newTestRouter(summaries, newFakeStore())

	rec := serve(router, http.MethodGet, "/api/entities?minFunding=-10000000&timeframe=3m&limit=5&category=AI")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp EntitiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Entities)

	assert.Equal(t, 90, summaries.last.TimeframeDays)
	assert.Equal(t, 5, summaries.last.Limit)
	assert.Equal(t, "AI", summaries.last.Filters.Category)
	require.NotNil(t, summaries.last.Filters.MinFunding)
	assert.Equal(t, -10_000_000.0, *summaries.last.Filters.MinFunding)

	rec = serve(router, http.MethodGet, "/api/entities?minGrowth=10")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Rocket", resp.Entities[0].Name)
	assert.Greater(t, resp.Entities[0].Score, 0.0)
}

func TestGetEntitiesHandlerBadParams(t *testing.T) {
	router := newTestRouter(&fakeSummaries{}, newFakeStore())

	for _, target := range []string{
		"/api/entities?minGrowth=fast",
		"/api/entities?timeframe=2w",
		"/api/entities?limit=-1",
	} {
		rec := serve(router, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := serve(newTestRouter(&fakeSummaries{err: errors.New("boom")}, newFakeStore()), http.MethodGet, "/api/entities")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestParseQueryContextTimeframe(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/entities?timeframe=14&roundType=Series%20C%2F%2B", nil)
	qc, err := ParseQueryContext(r)
	require.NoError(t, err)
	assert.Equal(t, 14, qc.TimeframeDays)
	assert.Equal(t, ranking.RoundSeriesCPlus, qc.Filters.RoundType)
	assert.Nil(t, qc.Filters.MinGrowth)
}

func TestGetEntityHandler(t *testing.T) {
	router := newTestRouter(&fakeSummaries{}, newFakeStore())

	rec := serve(router, http.MethodGet, "/api/entities/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var e models.Entity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "Acme", e.Name)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/entities/99").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/entities/abc").Code)
}

func TestGetMetricsHandler(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(&fakeSummaries{}, store)

	rec := serve(router, http.MethodGet, "/api/entities/1/metrics?range=7d")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 6, 23, 0, 0, 0, 0, time.UTC), store.from)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), store.to)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "7d", resp.Range)
	assert.NotNil(t, resp.Metrics)
	assert.Zero(t, resp.GrowthRate)

	store.metrics = []models.DailyMetric{
		{EntityID: 1, MetricDate: time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC), TotalVirality: 200},
		{EntityID: 1, MetricDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), TotalVirality: 250},
	}
	rec = serve(router, http.MethodGet, "/api/entities/1/metrics?range=7d")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 25, resp.GrowthRate, 1e-9)

	rec = serve(router, http.MethodGet, "/api/entities/1/metrics?range=any")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1970, store.from.Year())

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/entities/1/metrics?range=forever").Code)
}

func TestGetMetricsHandlerRawReadings(t *testing.T) {
	day := time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC)
	archived, err := transform.BuildDailyMetric(models.Entity{ID: 1, Name: "Acme"}, day, map[extractors.Channel]extractors.Reading{
		extractors.ChannelWebsite: {Virality: 120, Audience: 5000},
		extractors.ChannelSocial:  {Virality: 80, Audience: 3000},
	})
	require.NoError(t, err)

	store := newFakeStore()
	store.metrics = []models.DailyMetric{
		archived,
		{EntityID: 1, MetricDate: day.AddDate(0, 0, -1), RawReadings: []byte("не snappy")},
		{EntityID: 1, MetricDate: day.AddDate(0, 0, -2)},
	}
	router := newTestRouter(&fakeSummaries{}, store)

	rec := serve(router, http.MethodGet, "/api/entities/1/metrics?range=7d&raw=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Metrics, 3)
	require.Len(t, resp.Readings, 1)
	assert.Equal(t, extractors.Reading{Virality: 120, Audience: 5000}, resp.Readings["2024-06-29"][extractors.ChannelWebsite])
	assert.Equal(t, extractors.Reading{}, resp.Readings["2024-06-29"][extractors.ChannelVideo])

	rec = serve(router, http.MethodGet, "/api/entities/1/metrics?range=7d")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "readings")
}

func TestGetStatusHandler(t *testing.T) {
	store := newFakeStore()
	store.monitors = map[string]*models.ETLStateMonitor{
		models.JobIngest: {
			Job:                 models.JobIngest,
			LastSuccessfulRun:   &models.ETLRunLog{ID: 7, Job: models.JobIngest, EndTime: time.Date(2024, 6, 27, 23, 50, 0, 0, time.UTC)},
			TotalSuccessfulRuns: 12,
			TotalFailedRuns:     1,
		},
	}
	router := newTestRouter(&fakeSummaries{}, store)

	rec := serve(router, http.MethodGet, "/api/pipeline/status?job="+models.JobIngest)
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, 12, statuses[0].TotalSuccessfulRuns)
	require.NotNil(t, statuses[0].DaysSinceSuccess)
	assert.Equal(t, 3, *statuses[0].DaysSinceSuccess)

	rec = serve(router, http.MethodGet, "/api/pipeline/status")
	require.Equal(t, http.StatusOK, rec.Code)
	statuses = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, len(models.Jobs))
	assert.Equal(t, models.JobFunding, statuses[2].Job)
	assert.Nil(t, statuses[2].DaysSinceSuccess)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/pipeline/status?job=cleanup").Code)

	store.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/api/pipeline/status").Code)
}

func TestGetForecastsHandler(t *testing.T) {
	store := newFakeStore()
	store.forecasts = map[models.MetricType][]models.ForecastPoint{
		models.MetricTotal:  {{EntityID: 1, MetricType: models.MetricTotal, ForecastedValue: 70}},
		models.MetricVolume: {{EntityID: 1, MetricType: models.MetricVolume, ForecastedValue: 9}},
	}
	router := newTestRouter(&fakeSummaries{}, store)

	var got []models.ForecastPoint
	rec := serve(router, http.MethodGet, "/api/entities/1/forecasts")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 70.0, got[0].ForecastedValue)

	rec = serve(router, http.MethodGet, "/api/entities/1/forecasts?metric=volume")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.MetricVolume, got[0].MetricType)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/entities/1/forecasts?metric=likes").Code)

	rec = serve(router, http.MethodGet, "/api/entities/1/forecasts?metric=social")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetFundingAndRunsHandlers(t *testing.T) {
	store := newFakeStore()
	store.rounds = []models.FundingRound{{ID: 2, EntityID: 1, RoundType: "Series B", IsLatest: true}}
	router := newTestRouter(&fakeSummaries{}, store)

	rec := serve(router, http.MethodGet, "/api/entities/1/funding")
	require.Equal(t, http.StatusOK, rec.Code)
	var rounds []models.FundingRound
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rounds))
	require.Len(t, rounds, 1)
	assert.True(t, rounds[0].IsLatest)

	rec = serve(router, http.MethodGet, "/api/pipeline/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, store.runsLimit)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/pipeline/runs?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/pipeline/runs?limit=501").Code)

	store.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/api/entities/1/funding").Code)
}

func TestTrackingHandlers(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(&fakeSummaries{}, store)

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPost, "/api/users/u1/tracked/1").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPost, "/api/users/u1/tracked/1").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPost, "/api/users/u1/tracked/2").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodPost, "/api/users/u1/tracked/99").Code)

	rec := serve(router, http.MethodGet, "/api/users/u1/tracked")
	require.Equal(t, http.StatusOK, rec.Code)
	var tracked []models.Entity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracked))
	require.Len(t, tracked, 2)

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/api/users/u1/tracked/1").Code)
	rec = serve(router, http.MethodGet, "/api/users/u1/tracked")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracked))
	require.Len(t, tracked, 1)
	assert.Equal(t, "Globex", tracked[0].Name)

	rec = serve(router, http.MethodGet, "/api/users/nobody/tracked")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&fakeSummaries{}, newFakeStore())

	rec := serve(router, http.MethodOptions, "/api/entities")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
