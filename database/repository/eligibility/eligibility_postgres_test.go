package eligibilityRepo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"moveo/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var responseRowColumns = []string{"attribution_id", "provider_id", "round", "distance_km", "outcome", "reason",
	"responded_at", "created_at"}

func TestPostgresRecordInvitations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEligibilityRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (attribution_id, provider_id, round) DO NOTHING")).
		WithArgs("a1", "lyon", 1, 0.0, "pending", now, "a1", "villeurbanne", 1, 7.99, "pending", now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = repo.RecordInvitations(context.Background(), []models.EligibilityResponse{
		{AttributionID: "a1", ProviderID: "lyon", Round: 1, DistanceKm: 0, Outcome: models.ResponsePending, CreatedAt: now},
		{AttributionID: "a1", ProviderID: "villeurbanne", Round: 1, DistanceKm: 7.99, Outcome: models.ResponsePending, CreatedAt: now},
	})
	require.NoError(t, err)

	// nothing to insert, no statement
	require.NoError(t, repo.RecordInvitations(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResolveIsConditional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEligibilityRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	from := []models.ResponseOutcome{models.ResponsePending}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE eligibility_responses SET outcome = $4")).
		WithArgs("a1", "p1", 1, "refused", "busy", now, pq.Array([]string{"pending"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE eligibility_responses SET outcome = $4")).
		WithArgs("a1", "p1", 1, "refused", "busy", now, pq.Array([]string{"pending"})).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Resolve(ctx, "a1", "p1", 1, from, models.ResponseRefused, "busy", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Resolve(ctx, "a1", "p1", 1, from, models.ResponseRefused, "busy", now)
	require.NoError(t, err)
	assert.False(t, ok, "already resolved")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResolvePendingSkipsWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEligibilityRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("outcome = 'pending' AND provider_id <> $5")).
		WithArgs("a1", 2, "superseded", now, "winner").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ResolvePending(context.Background(), "a1", 2, "winner", models.ResponseSuperseded, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetAndCountPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEligibilityRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM eligibility_responses")).
		WithArgs("a1", "p1", 1).
		WillReturnRows(sqlmock.NewRows(responseRowColumns).
			AddRow("a1", "p1", 1, 3.2, "refused", "busy", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM eligibility_responses")).
		WithArgs("a1", "ghost", 1).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM eligibility_responses")).
		WithArgs("a1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	resp, err := repo.Get(ctx, "a1", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseRefused, resp.Outcome)
	assert.Equal(t, "busy", resp.Reason)
	require.NotNil(t, resp.RespondedAt)

	_, err = repo.Get(ctx, "a1", "ghost", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.CountPending(ctx, "a1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresEligibilityRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE attribution_id = $1 AND round = $2")).
		WithArgs("a1", 1).
		WillReturnRows(sqlmock.NewRows(responseRowColumns).
			AddRow("a1", "lyon", 1, 0.0, "pending", "", nil, now).
			AddRow("a1", "villeurbanne", 1, 7.99, "superseded", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE attribution_id = $1 AND round = $2")).
		WithArgs("a1", 2).
		WillReturnRows(sqlmock.NewRows(responseRowColumns))

	round, err := repo.ListByRound(context.Background(), "a1", 1)
	require.NoError(t, err)
	require.Len(t, round, 2)
	assert.Nil(t, round[0].RespondedAt)
	assert.Equal(t, models.ResponseSuperseded, round[1].Outcome)

	empty, err := repo.ListByRound(context.Background(), "a1", 2)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	assert.NoError(t, mock.ExpectationsWereMet())
}
