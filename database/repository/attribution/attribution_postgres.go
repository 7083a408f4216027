package attributionRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moveo/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const attributionColumns = `id, service_request_id, service_type, status, lat, lng, max_distance_km,
broadcast_count, excluded_provider_ids, accepted_provider_id, status_reason, expires_at, created_at, updated_at`

// PostgresAttributionRepo implements AttributionRepository on PostgreSQL.
// Transitions are single UPDATE ... WHERE ... RETURNING statements.
type PostgresAttributionRepo struct {
	db *sql.DB
}

func NewPostgresAttributionRepo(db *sql.DB) *PostgresAttributionRepo {
	return &PostgresAttributionRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttribution(row rowScanner) (*models.Attribution, error) {
	var (
		a        models.Attribution
		lat, lng float64
		accepted sql.NullString
	)
	err := row.Scan(&a.ID, &a.ServiceRequestID, &a.ServiceType, &a.Status, &lat, &lng, &a.MaxDistanceKm,
		&a.BroadcastCount, &a.ExcludedProviderIDs, &accepted, &a.StatusReason, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ServiceLocation = models.NewGeoPoint(lat, lng)
	if accepted.Valid {
		id := accepted.String
		a.AcceptedProviderID = &id
	}
	a.Active = a.Status.IsActive()
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (r *PostgresAttributionRepo) Create(ctx context.Context, a *models.Attribution) error {
	var accepted any
	if a.AcceptedProviderID != nil {
		accepted = *a.AcceptedProviderID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attributions (`+attributionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.ServiceRequestID, a.ServiceType, string(a.Status), a.ServiceLocation.Lat(), a.ServiceLocation.Lng(),
		a.MaxDistanceKm, a.BroadcastCount, a.ExcludedProviderIDs, accepted, a.StatusReason, a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveExists
		}
		return fmt.Errorf("insert attribution: %w", err)
	}
	a.Active = a.Status.IsActive()
	return nil
}

func (r *PostgresAttributionRepo) GetByID(ctx context.Context, id string) (*models.Attribution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attributionColumns+` FROM attributions WHERE id = $1`, id)
	a, err := scanAttribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attribution %s: %w", id, err)
	}
	return a, nil
}

func (r *PostgresAttributionRepo) GetActiveByServiceRequest(ctx context.Context, serviceRequestID string) (*models.Attribution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attributionColumns+` FROM attributions
		WHERE service_request_id = $1 AND status = ANY($2)`,
		serviceRequestID, pq.Array(statusStrings(models.ActiveStatuses)))
	a, err := scanAttribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active attribution for request %s: %w", serviceRequestID, err)
	}
	return a, nil
}

type placeholders struct {
	args []any
}

func (p *placeholders) add(v any) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

// buildTransition renders t as an UPDATE statement and its arguments.
func buildTransition(id string, t Transition) (string, []any) {
	var p placeholders
	where := []string{"id = " + p.add(id)}
	if len(t.From) > 0 {
		where = append(where, "status = ANY("+p.add(pq.Array(statusStrings(t.From)))+")")
	}
	if t.RequireNoAccepted {
		where = append(where, "accepted_provider_id IS NULL")
	}
	if t.RequireAccepted != "" {
		where = append(where, "accepted_provider_id = "+p.add(t.RequireAccepted))
	}
	if t.RequireRound > 0 {
		where = append(where, "broadcast_count = "+p.add(t.RequireRound))
	}
	if t.NotExcluded != "" {
		where = append(where, "NOT ("+p.add(t.NotExcluded)+" = ANY(excluded_provider_ids))")
	}
	if !t.DeadlineAfter.IsZero() {
		where = append(where, "expires_at > "+p.add(t.DeadlineAfter))
	}
	if !t.DeadlineReached.IsZero() {
		where = append(where, "expires_at <= "+p.add(t.DeadlineReached))
	}

	sets := []string{"updated_at = " + p.add(t.now())}
	if t.To != "" {
		sets = append(sets, "status = "+p.add(string(t.To)))
	}
	if t.SetAccepted != "" {
		sets = append(sets, "accepted_provider_id = "+p.add(t.SetAccepted))
	}
	if t.ClearAccepted {
		sets = append(sets, "accepted_provider_id = NULL")
	}
	if t.Exclude != "" {
		k := p.add(t.Exclude)
		sets = append(sets, "excluded_provider_ids = CASE WHEN "+k+" = ANY(excluded_provider_ids) "+
			"THEN excluded_provider_ids ELSE array_append(excluded_provider_ids, "+k+") END")
	}
	if t.IncrementRound {
		sets = append(sets, "broadcast_count = broadcast_count + 1")
	}
	if !t.ExpiresAt.IsZero() {
		sets = append(sets, "expires_at = "+p.add(t.ExpiresAt))
	}
	if t.Reason != "" {
		sets = append(sets, "status_reason = "+p.add(t.Reason))
	}

	query := "UPDATE attributions SET " + strings.Join(sets, ", ") +
		" WHERE " + strings.Join(where, " AND ") +
		" RETURNING " + attributionColumns
	return query, p.args
}

func (r *PostgresAttributionRepo) CompareAndSwapStatus(ctx context.Context, id string, t Transition) (*models.Attribution, error) {
	query, args := buildTransition(id, t)
	a, err := scanAttribution(r.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attribution %s transition: %w", id, err)
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM attributions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("attribution %s lookup: %w", id, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrConditionNotMet
}

func (r *PostgresAttributionRepo) AddExclusion(ctx context.Context, id, providerID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attributions SET
			excluded_provider_ids = CASE WHEN $2 = ANY(excluded_provider_ids)
				THEN excluded_provider_ids ELSE array_append(excluded_provider_ids, $2) END,
			updated_at = $3
		WHERE id = $1`,
		id, providerID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("exclude provider %s from attribution %s: %w", providerID, id, err)
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

func (r *PostgresAttributionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM attributions
		WHERE status = ANY($1) AND accepted_provider_id IS NULL AND expires_at <= $2
		ORDER BY expires_at LIMIT $3`,
		pq.Array(statusStrings(models.BroadcastingStatuses)), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired attributions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attribution id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func statusStrings(statuses []models.AttributionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
