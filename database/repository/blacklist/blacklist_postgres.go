package blacklistRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moveo/models"

	"github.com/lib/pq"
)

const entryColumns = `provider_id, consecutive_refusal_count, refused_rounds, is_active, reason, created_at, updated_at, expires_at`

type PostgresBlacklistRepo struct {
	db *sql.DB
}

func NewPostgresBlacklistRepo(db *sql.DB) *PostgresBlacklistRepo {
	return &PostgresBlacklistRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.BlacklistEntry, error) {
	var (
		e       models.BlacklistEntry
		rounds  pq.StringArray
		expires sql.NullTime
	)
	if err := row.Scan(&e.ProviderID, &e.ConsecutiveRefusalCount, &rounds, &e.IsActive, &e.Reason,
		&e.CreatedAt, &e.UpdatedAt, &expires); err != nil {
		return nil, err
	}
	e.RefusedRounds = []string(rounds)
	if expires.Valid {
		t := expires.Time
		e.ExpiresAt = &t
	}
	return &e, nil
}

// IncrementRefusalCounter relies on ON CONFLICT ... WHERE: a round key already in
// refused_rounds makes the update a no-op and RETURNING yields no row.
func (r *PostgresBlacklistRepo) IncrementRefusalCounter(ctx context.Context, providerID, roundKey string, now time.Time) (*models.BlacklistEntry, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO blacklist (provider_id, consecutive_refusal_count, refused_rounds, is_active, created_at, updated_at)
		VALUES ($1, 1, ARRAY[$2]::TEXT[], FALSE, $3, $3)
		ON CONFLICT (provider_id) DO UPDATE SET
			consecutive_refusal_count = blacklist.consecutive_refusal_count + 1,
			refused_rounds = array_append(blacklist.refused_rounds, $2),
			updated_at = $3
		WHERE NOT ($2 = ANY(blacklist.refused_rounds))
		RETURNING `+entryColumns,
		providerID, roundKey, now)
	entry, err := scanEntry(row)
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("record refusal for provider %s: %w", providerID, err)
	}
	existing, err := r.Get(ctx, providerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PostgresBlacklistRepo) Activate(ctx context.Context, providerID, reason string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blacklist SET is_active = TRUE, reason = $2, updated_at = $3
		WHERE provider_id = $1 AND is_active = FALSE`,
		providerID, reason, now)
	if err != nil {
		return false, fmt.Errorf("blacklist provider %s: %w", providerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresBlacklistRepo) ResetRefusals(ctx context.Context, providerID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE blacklist SET consecutive_refusal_count = 0, refused_rounds = '{}', updated_at = $2
		WHERE provider_id = $1`,
		providerID, now)
	if err != nil {
		return fmt.Errorf("reset refusals for provider %s: %w", providerID, err)
	}
	return nil
}

func (r *PostgresBlacklistRepo) Lift(ctx context.Context, providerID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blacklist SET is_active = FALSE, reason = '', consecutive_refusal_count = 0,
			refused_rounds = '{}', updated_at = $2
		WHERE provider_id = $1`,
		providerID, now)
	if err != nil {
		return fmt.Errorf("lift ban for provider %s: %w", providerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBlacklistRepo) Get(ctx context.Context, providerID string) (*models.BlacklistEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM blacklist WHERE provider_id = $1`, providerID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blacklist entry for %s: %w", providerID, err)
	}
	return entry, nil
}

func (r *PostgresBlacklistRepo) ListActive(ctx context.Context, providerIDs []string) ([]models.BlacklistEntry, error) {
	if len(providerIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM blacklist WHERE provider_id = ANY($1) AND is_active`,
		pq.Array(providerIDs))
	if err != nil {
		return nil, fmt.Errorf("list active bans: %w", err)
	}
	defer rows.Close()
	var entries []models.BlacklistEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
