// routes/entity_handlers.go
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/ranking"
	"github.com/LilVoxy/virality_metrics/ETL/transform"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
	"github.com/LilVoxy/virality_metrics/database"
)

// EntitiesResponse ответ API для списка сущностей
type EntitiesResponse struct {
	Entities []ranking.EntitySummary `json:"entities"`
	Count    int                     `json:"count"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.Error("Ошибка при кодировании JSON: %v", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeStoreError различает отсутствие записи и сбой хранилища
func (a *API) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "Сущность не найдена")
		return
	}
	a.Logger.Error("Ошибка хранилища: %v", err)
	a.writeError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
}

func parseFloatParam(q map[string][]string, name string) (*float64, error) {
	values := q[name]
	if len(values) == 0 || values[0] == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return nil, fmt.Errorf("параметр %s должен быть числом", name)
	}
	return &v, nil
}

// parseTimeframe принимает число дней или период вида 7d/3m
func parseTimeframe(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if days, err := strconv.Atoi(s); err == nil && days >= 0 {
		return days, nil
	}
	return database.ParseRange(s)
}

// ParseQueryContext строит запрос к слою фильтрации из параметров URL
func ParseQueryContext(r *http.Request) (ranking.QueryContext, error) {
	q := r.URL.Query()
	qc := ranking.QueryContext{
		Filters: ranking.Filters{
			Category:  strings.TrimSpace(q.Get("category")),
			RoundType: strings.TrimSpace(q.Get("roundType")),
		},
	}

	var err error
	params := []struct {
		name string
		dst  **float64
	}{
		{"minGrowth", &qc.Filters.MinGrowth},
		{"minVolume", &qc.Filters.MinVolume},
		{"minVirality", &qc.Filters.MinVirality},
		{"minFunding", &qc.Filters.MinFunding},
		{"maxFunding", &qc.Filters.MaxFunding},
	}
	for _, p := range params {
		if *p.dst, err = parseFloatParam(q, p.name); err != nil {
			return qc, err
		}
	}

	if qc.TimeframeDays, err = parseTimeframe(q.Get("timeframe")); err != nil {
		return qc, err
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return qc, fmt.Errorf("параметр limit должен быть неотрицательным целым")
		}
		qc.Limit = n
	}

	return qc, nil
}

func entityID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[key], 10, 64)
}

// GetEntitiesHandler список сущностей с фильтрами, по убыванию оценки
func (a *API) GetEntitiesHandler(w http.ResponseWriter, r *http.Request) {
	qc, err := ParseQueryContext(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := a.Summaries.Query(r.Context(), qc)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	if summaries == nil {
		summaries = []ranking.EntitySummary{}
	}

	a.writeJSON(w, http.StatusOK, EntitiesResponse{Entities: summaries, Count: len(summaries)})
}

// GetEntityHandler одна сущность
func (a *API) GetEntityHandler(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "Неверный формат ID сущности")
		return
	}

	entity, err := a.Entities.GetEntity(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, entity)
}

// MetricsResponse история метрик сущности
type MetricsResponse struct {
	EntityID int64                `json:"entity_id"`
	Range    string               `json:"range"`
	Metrics  []models.DailyMetric `json:"metrics"`
	// Рост итоговой виральности за период, %
	GrowthRate float64 `json:"growth_rate"`
	// Исходные показания каналов по датам, только при ?raw=1
	Readings map[string]map[extractors.Channel]extractors.Reading `json:"readings,omitempty"`
}

// GetMetricsHandler история дневных метрик за период ?range=.
// С ?raw=1 в ответ добавляются исходные показания каналов.
func (a *API) GetMetricsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "Неверный формат ID сущности")
		return
	}

	rangeParam := r.URL.Query().Get("range")
	days, err := database.ParseRange(rangeParam)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	to := utils.TruncateToDay(a.now())
	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if days > 0 {
		from = to.AddDate(0, 0, -days)
	}

	rows, err := a.Metrics.GetMetricRange(r.Context(), id, from, to)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	if rows == nil {
		rows = []models.DailyMetric{}
	}

	resp := MetricsResponse{EntityID: id, Range: rangeParam, Metrics: rows}
	if growth, err := transform.ComputeGrowthRateForRange(models.Series(rows, models.MetricTotal), from, to); err == nil {
		resp.GrowthRate = growth
	}
	if r.URL.Query().Get("raw") == "1" {
		resp.Readings = make(map[string]map[extractors.Channel]extractors.Reading, len(rows))
		for _, row := range rows {
			readings, err := transform.DecodeRawReadings(row)
			if err != nil {
				a.Logger.Warn("Пропуск архива показаний: %v", err)
				continue
			}
			if readings != nil {
				resp.Readings[row.MetricDate.Format(utils.DateLayout)] = readings
			}
		}
	}

	a.writeJSON(w, http.StatusOK, resp)
}

// GetForecastsHandler прогнозы по метрике ?metric= (по умолчанию total)
func (a *API) GetForecastsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "Неверный формат ID сущности")
		return
	}

	metric := models.MetricTotal
	if raw := r.URL.Query().Get("metric"); raw != "" {
		parsed, ok := models.ParseMetricType(raw)
		if !ok {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("неизвестная метрика %q", raw))
			return
		}
		metric = parsed
	}

	forecasts, err := a.Forecasts.GetForecasts(r.Context(), id, metric)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	if forecasts == nil {
		forecasts = []models.ForecastPoint{}
	}
	a.writeJSON(w, http.StatusOK, forecasts)
}

// GetFundingHandler раунды финансирования, новые первыми
func (a *API) GetFundingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := entityID(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "Неверный формат ID сущности")
		return
	}

	rounds, err := a.Funding.ListRounds(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	if rounds == nil {
		rounds = []models.FundingRound{}
	}
	a.writeJSON(w, http.StatusOK, rounds)
}

// GetRunsHandler последние запуски заданий ?limit= (по умолчанию 20)
func (a *API) GetRunsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			a.writeError(w, http.StatusBadRequest, "параметр limit должен быть от 1 до 500")
			return
		}
		limit = n
	}

	runs, err := a.Runs.ListRecentRuns(r.Context(), limit)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	if runs == nil {
		runs = []models.ETLRunLog{}
	}
	a.writeJSON(w, http.StatusOK, runs)
}

// JobStatus состояние задания пайплайна
type JobStatus struct {
	models.ETLStateMonitor
	// nil, если успешных запусков не было
	DaysSinceSuccess *int `json:"days_since_success"`
}

// GetStatusHandler сводка по заданиям ?job= (по умолчанию по всем)
func (a *API) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	jobs := models.Jobs
	if job := r.URL.Query().Get("job"); job != "" {
		if !models.IsKnownJob(job) {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("неизвестное задание %q", job))
			return
		}
		jobs = []string{job}
	}

	statuses := make([]JobStatus, 0, len(jobs))
	for _, job := range jobs {
		monitor, err := a.Runs.GetStateMonitor(r.Context(), job)
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
		status := JobStatus{ETLStateMonitor: *monitor}
		if last := monitor.LastSuccessfulRun; last != nil {
			days := utils.DaysBetween(last.EndTime, a.now())
			status.DaysSinceSuccess = &days
		}
		statuses = append(statuses, status)
	}
	a.writeJSON(w, http.StatusOK, statuses)
}
