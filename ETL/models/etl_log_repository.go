package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MySQLETLLogRepository реализация ETLLogRepository для MySQL
type MySQLETLLogRepository struct {
	db *sql.DB
}

// NewMySQLETLLogRepository создает новый экземпляр MySQLETLLogRepository
func NewMySQLETLLogRepository(db *sql.DB) *MySQLETLLogRepository {
	return &MySQLETLLogRepository{
		db: db,
	}
}

const runLogColumns = `
		id, run_uuid, job, start_time, IFNULL(end_time, start_time), status,
		items_processed, items_skipped, items_failed,
		IFNULL(error_message, ''), IFNULL(execution_time_seconds, 0)`

// EnsureTable создает таблицу для журнала запусков, если она не существует
func (r *MySQLETLLogRepository) EnsureTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS etl_run_log (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_uuid CHAR(36) NOT NULL,
		job VARCHAR(64) NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NULL,
		status ENUM('success', 'failed', 'in_progress') NOT NULL DEFAULT 'in_progress',
		items_processed INT DEFAULT 0,
		items_skipped INT DEFAULT 0,
		items_failed INT DEFAULT 0,
		error_message TEXT,
		execution_time_seconds FLOAT,
		INDEX idx_job_status (job, status)
	);`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_run_log: %w", err)
	}
	return nil
}

// CreateLogEntry создает новую запись о запуске задания
func (r *MySQLETLLogRepository) CreateLogEntry(ctx context.Context, job, runUUID string, startTime time.Time) (int64, error) {
	query := `
	INSERT INTO etl_run_log (run_uuid, job, start_time, status)
	VALUES (?, ?, ?, 'in_progress')`

	result, err := r.db.ExecContext(ctx, query, runUUID, job, startTime)
	if err != nil {
		return 0, fmt.Errorf("ошибка при создании записи о запуске %s: %w", job, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении ID созданной записи: %w", err)
	}

	return id, nil
}

// UpdateLogEntry фиксирует итог запуска задания
func (r *MySQLETLLogRepository) UpdateLogEntry(ctx context.Context, id int64, endTime time.Time, result JobResult) error {
	status := RunStatusSuccess
	if !result.Success {
		status = RunStatusFailed
	}

	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		items_processed = ?,
		items_skipped = ?,
		items_failed = ?,
		error_message = ?,
		execution_time_seconds = TIMESTAMPDIFF(MICROSECOND, start_time, ?) / 1000000
	WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query,
		endTime,
		status,
		result.Count,
		result.Skipped,
		result.Failed,
		result.Error,
		endTime,
		id,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске %d: %w", id, err)
	}

	return nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске задания
func (r *MySQLETLLogRepository) GetLastSuccessfulRun(ctx context.Context, job string) (*ETLRunLog, error) {
	query := `SELECT` + runLogColumns + `
	FROM etl_run_log
	WHERE job = ? AND status = 'success'
	ORDER BY end_time DESC
	LIMIT 1`

	run, err := scanRunLog(r.db.QueryRowContext(ctx, query, job))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Нет успешных запусков
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении последнего успешного запуска %s: %w", job, err)
	}

	return run, nil
}

// ListRecentRuns получает последние запуски всех заданий
func (r *MySQLETLLogRepository) ListRecentRuns(ctx context.Context, limit int) ([]ETLRunLog, error) {
	query := `SELECT` + runLogColumns + `
	FROM etl_run_log
	ORDER BY start_time DESC
	LIMIT ?`

	return r.queryRuns(ctx, query, limit)
}

// ListFinishedRunsAfter получает завершенные запуски с ID больше указанного
func (r *MySQLETLLogRepository) ListFinishedRunsAfter(ctx context.Context, afterID int64) ([]ETLRunLog, error) {
	query := `SELECT` + runLogColumns + `
	FROM etl_run_log
	WHERE id > ? AND status <> 'in_progress'
	ORDER BY id`

	return r.queryRuns(ctx, query, afterID)
}

// GetStateMonitor получает сводную статистику по заданию
func (r *MySQLETLLogRepository) GetStateMonitor(ctx context.Context, job string) (*ETLStateMonitor, error) {
	lastSuccessful, err := r.GetLastSuccessfulRun(ctx, job)
	if err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	monitor := &ETLStateMonitor{Job: job, LastSuccessfulRun: lastSuccessful}

	err = r.db.QueryRowContext(ctx, `
		SELECT
			IFNULL(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			IFNULL(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN status = 'success' THEN execution_time_seconds ELSE NULL END)
		FROM etl_run_log
		WHERE job = ?`, job).Scan(&monitor.TotalSuccessfulRuns, &monitor.TotalFailedRuns, &avg)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков %s: %w", job, err)
	}
	monitor.AvgExecutionTimeSeconds = avg.Float64

	return monitor, nil
}

func (r *MySQLETLLogRepository) queryRuns(ctx context.Context, query string, args ...interface{}) ([]ETLRunLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении журнала запусков: %w", err)
	}
	defer rows.Close()

	var logs []ETLRunLog
	for rows.Next() {
		run, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске: %w", err)
		}
		logs = append(logs, *run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках: %w", err)
	}

	return logs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRunLog(row rowScanner) (*ETLRunLog, error) {
	var log ETLRunLog
	err := row.Scan(
		&log.ID, &log.RunUUID, &log.Job, &log.StartTime, &log.EndTime, &log.Status,
		&log.ItemsProcessed, &log.ItemsSkipped, &log.ItemsFailed,
		&log.ErrorMessage, &log.ExecutionTimeSeconds,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}
