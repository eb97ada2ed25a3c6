package funding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

func sampleRound() models.FundingRound {
	return models.FundingRound{
		EntityID:    9,
		RoundType:   "Series B",
		Amount:      25_000_000,
		FundingDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		IsLatest:    true,
	}
}

func TestReplaceLatestSingleTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE funding_rounds SET is_latest = FALSE").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO funding_rounds").
		WithArgs(int64(9), "Series B", 25_000_000.0, "2024-03-15").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	repo := NewMySQLFundingRepository(db)
	require.NoError(t, repo.ReplaceLatest(context.Background(), sampleRound()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceLatestRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE funding_rounds").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO funding_rounds").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := NewMySQLFundingRepository(db)
	err = repo.ReplaceLatest(context.Background(), sampleRound())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceLatestRollsBackOnUpdateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE funding_rounds").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	repo := NewMySQLFundingRepository(db)
	require.Error(t, repo.ReplaceLatest(context.Background(), sampleRound()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRounds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	columns := []string{"id", "entity_id", "round_type", "amount", "funding_date", "is_latest"}
	newer := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	older := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM funding_rounds WHERE entity_id = \\?").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), int64(9), "Series B", 25_000_000.0, newer, true).
			AddRow(int64(1), int64(9), "Series A", 5_000_000.0, older, false))

	mock.ExpectQuery("SELECT (.+) FROM funding_rounds WHERE id > \\?").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), int64(9), "Series B", 25_000_000.0, newer, true))

	repo := NewMySQLFundingRepository(db)

	rounds, err := repo.ListRounds(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.True(t, rounds[0].IsLatest)
	assert.Equal(t, "Series A", rounds[1].RoundType)

	after, err := repo.ListRoundsAfter(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, int64(2), after[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
