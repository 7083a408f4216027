package blacklistRepo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryRowColumns = []string{"provider_id", "consecutive_refusal_count", "refused_rounds", "is_active", "reason",
	"created_at", "updated_at", "expires_at"}

func TestPostgresIncrementRefusalCounter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresBlacklistRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blacklist")).
		WithArgs("p1", "a1#1", now).
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow("p1", 1, "{a1#1}", false, "", now, now, nil))

	entry, counted, err := repo.IncrementRefusalCounter(ctx, "p1", "a1#1", now)
	require.NoError(t, err)
	assert.True(t, counted)
	assert.Equal(t, 1, entry.ConsecutiveRefusalCount)
	assert.Equal(t, []string{"a1#1"}, entry.RefusedRounds)

	// Same round again: the conditional upsert returns nothing.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blacklist")).
		WithArgs("p1", "a1#1", now).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT provider_id")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow("p1", 1, "{a1#1}", false, "", now, now, nil))

	entry, counted, err = repo.IncrementRefusalCounter(ctx, "p1", "a1#1", now)
	require.NoError(t, err)
	assert.False(t, counted)
	assert.Equal(t, 1, entry.ConsecutiveRefusalCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresActivateOnlyOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresBlacklistRepo(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE blacklist SET is_active = TRUE")).
		WithArgs("p1", "banned", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE blacklist SET is_active = TRUE")).
		WithArgs("p1", "banned", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.Activate(context.Background(), "p1", "banned", now)
	require.NoError(t, err)
	second, err := repo.Activate(context.Background(), "p1", "banned", now)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}
