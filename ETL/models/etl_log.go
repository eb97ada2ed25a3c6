package models

import (
	"context"
	"time"
)

// Статусы запуска задания
const (
	RunStatusSuccess    = "success"
	RunStatusFailed     = "failed"
	RunStatusInProgress = "in_progress"
)

// ETLRunLog представляет запись о запуске задания пайплайна
type ETLRunLog struct {
	ID                   int64     `json:"id"`
	RunUUID              string    `json:"run_uuid"`
	Job                  string    `json:"job"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Status               string    `json:"status"` // "success", "failed", "in_progress"
	ItemsProcessed       int       `json:"items_processed"`
	ItemsSkipped         int       `json:"items_skipped"`
	ItemsFailed          int       `json:"items_failed"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
}

// ETLLogRepository представляет репозиторий для работы с журналом запусков
type ETLLogRepository interface {
	// EnsureTable создает таблицу журнала, если она не существует
	EnsureTable(ctx context.Context) error

	// CreateLogEntry создает новую запись о запуске задания
	CreateLogEntry(ctx context.Context, job, runUUID string, startTime time.Time) (int64, error)

	// UpdateLogEntry фиксирует итог запуска
	UpdateLogEntry(ctx context.Context, id int64, endTime time.Time, result JobResult) error

	// GetLastSuccessfulRun получает последний успешный запуск задания
	GetLastSuccessfulRun(ctx context.Context, job string) (*ETLRunLog, error)

	// ListRecentRuns получает последние запуски всех заданий
	ListRecentRuns(ctx context.Context, limit int) ([]ETLRunLog, error)

	// ListFinishedRunsAfter получает завершенные запуски с ID больше указанного
	ListFinishedRunsAfter(ctx context.Context, afterID int64) ([]ETLRunLog, error)
}

// ETLStateMonitor предоставляет информацию о состоянии задания
type ETLStateMonitor struct {
	Job                     string     `json:"job"`
	LastSuccessfulRun       *ETLRunLog `json:"last_successful_run"`
	TotalSuccessfulRuns     int        `json:"total_successful_runs"`
	TotalFailedRuns         int        `json:"total_failed_runs"`
	AvgExecutionTimeSeconds float64    `json:"avg_execution_time_seconds"`
}
