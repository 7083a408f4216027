package eligibilityRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moveo/models"

	"github.com/lib/pq"
)

const responseColumns = `attribution_id, provider_id, round, distance_km, outcome, reason, responded_at, created_at`

type PostgresEligibilityRepo struct {
	db *sql.DB
}

func NewPostgresEligibilityRepo(db *sql.DB) *PostgresEligibilityRepo {
	return &PostgresEligibilityRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResponse(row rowScanner) (*models.EligibilityResponse, error) {
	var (
		resp      models.EligibilityResponse
		responded sql.NullTime
	)
	if err := row.Scan(&resp.AttributionID, &resp.ProviderID, &resp.Round, &resp.DistanceKm,
		&resp.Outcome, &resp.Reason, &responded, &resp.CreatedAt); err != nil {
		return nil, err
	}
	if responded.Valid {
		t := responded.Time
		resp.RespondedAt = &t
	}
	return &resp, nil
}

func (r *PostgresEligibilityRepo) RecordInvitations(ctx context.Context, responses []models.EligibilityResponse) error {
	if len(responses) == 0 {
		return nil
	}
	values := make([]string, 0, len(responses))
	args := make([]any, 0, len(responses)*6)
	for i, resp := range responses {
		n := i * 6
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6))
		args = append(args, resp.AttributionID, resp.ProviderID, resp.Round, resp.DistanceKm, string(resp.Outcome), resp.CreatedAt)
	}
	query := `INSERT INTO eligibility_responses (attribution_id, provider_id, round, distance_km, outcome, created_at)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (attribution_id, provider_id, round) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record invitations: %w", err)
	}
	return nil
}

func (r *PostgresEligibilityRepo) Get(ctx context.Context, attributionID, providerID string, round int) (*models.EligibilityResponse, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+` FROM eligibility_responses
		WHERE attribution_id = $1 AND provider_id = $2 AND round = $3`,
		attributionID, providerID, round)
	resp, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get eligibility response: %w", err)
	}
	return resp, nil
}

func (r *PostgresEligibilityRepo) Resolve(ctx context.Context, attributionID, providerID string, round int, from []models.ResponseOutcome, to models.ResponseOutcome, reason string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE eligibility_responses SET outcome = $4, reason = $5, responded_at = $6
		WHERE attribution_id = $1 AND provider_id = $2 AND round = $3 AND outcome = ANY($7)`,
		attributionID, providerID, round, string(to), reason, at, pq.Array(outcomeStrings(from)))
	if err != nil {
		return false, fmt.Errorf("resolve eligibility response: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresEligibilityRepo) ResolvePending(ctx context.Context, attributionID string, round int, exceptProviderID string, to models.ResponseOutcome, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE eligibility_responses SET outcome = $3, responded_at = $4
		WHERE attribution_id = $1 AND round = $2 AND outcome = 'pending' AND provider_id <> $5`,
		attributionID, round, string(to), at, exceptProviderID)
	if err != nil {
		return 0, fmt.Errorf("resolve pending responses: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresEligibilityRepo) CountPending(ctx context.Context, attributionID string, round int) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM eligibility_responses WHERE attribution_id = $1 AND round = $2 AND outcome = 'pending'`,
		attributionID, round).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending responses: %w", err)
	}
	return n, nil
}

func (r *PostgresEligibilityRepo) ListByRound(ctx context.Context, attributionID string, round int) ([]models.EligibilityResponse, error) {
	return r.query(ctx, `SELECT `+responseColumns+` FROM eligibility_responses
		WHERE attribution_id = $1 AND round = $2 ORDER BY round, distance_km, provider_id`, attributionID, round)
}

func (r *PostgresEligibilityRepo) ListByAttribution(ctx context.Context, attributionID string) ([]models.EligibilityResponse, error) {
	return r.query(ctx, `SELECT `+responseColumns+` FROM eligibility_responses
		WHERE attribution_id = $1 ORDER BY round, distance_km, provider_id`, attributionID)
}

func (r *PostgresEligibilityRepo) query(ctx context.Context, query string, args ...any) ([]models.EligibilityResponse, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eligibility responses: %w", err)
	}
	defer rows.Close()
	out := []models.EligibilityResponse{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eligibility response: %w", err)
		}
		out = append(out, *resp)
	}
	return out, rows.Err()
}

func outcomeStrings(outcomes []models.ResponseOutcome) []string {
	out := make([]string, len(outcomes))
	for i, o := range outcomes {
		out[i] = string(o)
	}
	return out
}
