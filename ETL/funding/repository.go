package funding

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/virality_metrics/ETL/metrics"
	"github.com/LilVoxy/virality_metrics/ETL/models"
	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// FundingStore хранилище раундов финансирования
type FundingStore interface {
	// ReplaceLatest снимает флаг is_latest со старых раундов и вставляет новый
	ReplaceLatest(ctx context.Context, round models.FundingRound) error
	// ListRounds возвращает раунды сущности, новые первыми
	ListRounds(ctx context.Context, entityID int64) ([]models.FundingRound, error)
}

// MySQLFundingRepository реализация FundingStore для MySQL
type MySQLFundingRepository struct {
	db *sql.DB
}

// NewMySQLFundingRepository создает новый экземпляр MySQLFundingRepository
func NewMySQLFundingRepository(db *sql.DB) *MySQLFundingRepository {
	return &MySQLFundingRepository{db: db}
}

// EnsureTable создает таблицу funding_rounds, если она не существует
func (r *MySQLFundingRepository) EnsureTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS funding_rounds (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		entity_id BIGINT NOT NULL,
		round_type VARCHAR(64) NOT NULL,
		amount DOUBLE NOT NULL DEFAULT 0,
		funding_date DATE NOT NULL,
		is_latest BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_entity_round_date (entity_id, round_type, funding_date),
		INDEX idx_entity_latest (entity_id, is_latest)
	);`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы funding_rounds: %w", err)
	}
	return nil
}

// ReplaceLatest выполняет снятие флага и вставку в одной транзакции,
// поэтому у сущности всегда не более одного последнего раунда
func (r *MySQLFundingRepository) ReplaceLatest(ctx context.Context, round models.FundingRound) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE funding_rounds SET is_latest = FALSE WHERE entity_id = ? AND is_latest = TRUE`,
		round.EntityID,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при сбросе флага is_latest для сущности %d: %w", round.EntityID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO funding_rounds (entity_id, round_type, amount, funding_date, is_latest)
		VALUES (?, ?, ?, ?, TRUE)
		ON DUPLICATE KEY UPDATE
		amount = VALUES(amount),
		is_latest = TRUE`,
		round.EntityID,
		round.RoundType,
		round.Amount,
		round.FundingDate.Format(utils.DateLayout),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при вставке раунда для сущности %d: %w", round.EntityID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	metrics.RecordRows("funding_rounds", 1)
	return nil
}

const roundColumns = `id, entity_id, round_type, amount, funding_date, is_latest`

// ListRounds возвращает раунды сущности, новые первыми
func (r *MySQLFundingRepository) ListRounds(ctx context.Context, entityID int64) ([]models.FundingRound, error) {
	return r.queryRounds(ctx, `
	SELECT `+roundColumns+`
	FROM funding_rounds
	WHERE entity_id = ?
	ORDER BY funding_date DESC, id DESC`, entityID)
}

// ListRoundsAfter возвращает раунды с ID больше указанного в порядке вставки
func (r *MySQLFundingRepository) ListRoundsAfter(ctx context.Context, afterID int64) ([]models.FundingRound, error) {
	return r.queryRounds(ctx, `
	SELECT `+roundColumns+`
	FROM funding_rounds
	WHERE id > ?
	ORDER BY id`, afterID)
}

func (r *MySQLFundingRepository) queryRounds(ctx context.Context, query string, args ...interface{}) ([]models.FundingRound, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе раундов: %w", err)
	}
	defer rows.Close()

	var rounds []models.FundingRound
	for rows.Next() {
		var f models.FundingRound
		if err := rows.Scan(&f.ID, &f.EntityID, &f.RoundType, &f.Amount, &f.FundingDate, &f.IsLatest); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании раунда: %w", err)
		}
		rounds = append(rounds, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по раундам: %w", err)
	}

	return rounds, nil
}
