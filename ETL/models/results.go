package models

// JobResult итог запуска задания пайплайна в форме {success, count, error}
type JobResult struct {
	Job     string `json:"job"`
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Skipped int    `json:"skipped,omitempty"`
	Failed  int    `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Названия заданий пайплайна
const (
	JobIngest     = "ingest_daily_metrics"
	JobIndicators = "calculate_indicators"
	JobFunding    = "update_funding_data"
	JobForecast   = "generate_forecasts"
)

// Jobs все задания пайплайна в порядке запуска
var Jobs = []string{JobIngest, JobIndicators, JobFunding, JobForecast}

// IsKnownJob проверяет название задания
func IsKnownJob(job string) bool {
	for _, j := range Jobs {
		if j == job {
			return true
		}
	}
	return false
}

// Fail заполняет результат при ошибке задания
func (r JobResult) Fail(err error) JobResult {
	r.Success = false
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
