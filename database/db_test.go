package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

	assert.True(t, IsDuplicateKey(dup))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", dup)))
	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicateKey(errors.New("Duplicate entry")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestParseRange(t *testing.T) {
	tests := map[string]int{
		"":    30,
		"7d":  7,
		"30d": 30,
		"3m":  90,
		"6M":  180,
		"1y":  365,
		"12m": 365,
		"5y":  1825,
		"any": 0,
	}
	for in, want := range tests {
		got, err := ParseRange(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRange("2w")
	assert.Error(t, err)
}

func TestTrackEntityIgnoresDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO user_tracked_entities").
		WithArgs("user-1", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_tracked_entities").
		WithArgs("user-1", int64(5)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectExec("INSERT INTO user_tracked_entities").
		WithArgs("user-1", int64(6)).
		WillReturnError(errors.New("connection reset"))

	store := NewStore(db)
	require.NoError(t, store.TrackEntity(context.Background(), "user-1", 5))
	require.NoError(t, store.TrackEntity(context.Background(), "user-1", 5))
	assert.Error(t, store.TrackEntity(context.Background(), "user-1", 6))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUntrackAndListTracked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM user_tracked_entities").
		WithArgs("user-1", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM user_tracked_entities t JOIN entities e").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "website_url", "youtube_url", "x_url", "created_at"}).
			AddRow(int64(6), "Globex", "Fintech", "https://globex.io", "", "", created))

	store := NewStore(db)
	require.NoError(t, store.UntrackEntity(context.Background(), "user-1", 5))

	tracked, err := store.ListTracked(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Equal(t, "Globex", tracked[0].Name)
	assert.Equal(t, []string{"Fintech"}, tracked[0].Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntityNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM entities WHERE id = \\?").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "website_url", "youtube_url", "x_url", "created_at"}))

	_, err = NewStore(db).GetEntity(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
