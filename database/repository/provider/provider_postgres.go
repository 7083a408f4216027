package providerRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moveo/models"

	"github.com/lib/pq"
)

const providerColumns = `id, name, lat, lng, service_types, verified, max_travel_radius_km, fcm_token, status, created_at, updated_at`

type PostgresProviderRepo struct {
	db *sql.DB
}

func NewPostgresProviderRepo(db *sql.DB) *PostgresProviderRepo {
	return &PostgresProviderRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*models.Provider, error) {
	var (
		p        models.Provider
		lat, lng float64
		services pq.StringArray
	)
	if err := row.Scan(&p.ID, &p.Name, &lat, &lng, &services, &p.Verified, &p.MaxTravelRadiusKm,
		&p.FCMToken, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.LocationGeo = models.NewGeoPoint(lat, lng)
	p.ServiceTypes = []string(services)
	return &p, nil
}

func (r *PostgresProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	p, err := scanProvider(r.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get provider %s: %w", id, err)
	}
	return p, nil
}

func (r *PostgresProviderRepo) GetMany(ctx context.Context, ids []string) ([]models.Provider, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = ANY($1)`, pq.Array(ids))
}

func (r *PostgresProviderRepo) Create(ctx context.Context, p *models.Provider) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO providers (`+providerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.LocationGeo.Lat(), p.LocationGeo.Lng(), pq.Array(p.ServiceTypes), p.Verified,
		p.MaxTravelRadiusKm, p.FCMToken, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

func (r *PostgresProviderRepo) Update(ctx context.Context, p *models.Provider) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE providers SET name = $2, lat = $3, lng = $4, service_types = $5, verified = $6,
			max_travel_radius_km = $7, fcm_token = $8, status = $9, updated_at = $10
		WHERE id = $1`,
		p.ID, p.Name, p.LocationGeo.Lat(), p.LocationGeo.Lng(), pq.Array(p.ServiceTypes), p.Verified,
		p.MaxTravelRadiusKm, p.FCMToken, p.Status, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update provider %s: %w", p.ID, err)
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

// ListCandidates pre-filters on a padded lat/lng bounding box.
func (r *PostgresProviderRepo) ListCandidates(ctx context.Context, q CandidateQuery) ([]models.Provider, error) {
	where := []string{"verified"}
	var args []any
	if q.ServiceType != "" {
		args = append(args, q.ServiceType)
		where = append(where, fmt.Sprintf("$%d = ANY(service_types)", len(args)))
	}
	if q.RadiusKm > 0 && q.Center.Valid() {
		minLat, maxLat, minLng, maxLng, ok := boundingBox(q.Center.Lat(), q.Center.Lng(), candidateRadiusKm(q.RadiusKm))
		if ok {
			args = append(args, minLat, maxLat, minLng, maxLng)
			n := len(args)
			where = append(where,
				fmt.Sprintf("lat BETWEEN $%d AND $%d", n-3, n-2),
				fmt.Sprintf("lng BETWEEN $%d AND $%d", n-1, n))
		}
	}
	return r.query(ctx, `SELECT `+providerColumns+` FROM providers WHERE `+strings.Join(where, " AND "), args...)
}

func (r *PostgresProviderRepo) query(ctx context.Context, query string, args ...any) ([]models.Provider, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()
	var providers []models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, *p)
	}
	return providers, rows.Err()
}
