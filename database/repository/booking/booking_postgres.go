package bookingRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moveo/models"
)

type PostgresServiceRequestRepo struct {
	db *sql.DB
}

func NewPostgresServiceRequestRepo(db *sql.DB) *PostgresServiceRequestRepo {
	return &PostgresServiceRequestRepo{db: db}
}

func (r *PostgresServiceRequestRepo) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var (
		sr        models.ServiceRequest
		lat, lng  float64
		scheduled sql.NullTime
		assigned  sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, service_type, lat, lng, address, amount_cents, currency, scheduled_date,
			payment_intent_id, assigned_provider_id, created_at, updated_at
		FROM service_requests WHERE id = $1`, id).
		Scan(&sr.ID, &sr.CustomerID, &sr.ServiceType, &lat, &lng, &sr.Address, &sr.AmountCents, &sr.Currency,
			&scheduled, &sr.PaymentIntentID, &assigned, &sr.CreatedAt, &sr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service request %s: %w", id, err)
	}
	sr.LocationGeo = models.NewGeoPoint(lat, lng)
	if scheduled.Valid {
		sr.ScheduledDate = scheduled.Time
	}
	if assigned.Valid {
		p := assigned.String
		sr.AssignedProviderID = &p
	}
	return &sr, nil
}

func (r *PostgresServiceRequestRepo) Create(ctx context.Context, sr *models.ServiceRequest) error {
	var scheduled any
	if !sr.ScheduledDate.IsZero() {
		scheduled = sr.ScheduledDate
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO service_requests (id, customer_id, service_type, lat, lng, address, amount_cents, currency,
			scheduled_date, payment_intent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sr.ID, sr.CustomerID, sr.ServiceType, sr.LocationGeo.Lat(), sr.LocationGeo.Lng(), sr.Address,
		sr.AmountCents, sr.Currency, scheduled, sr.PaymentIntentID, sr.CreatedAt, sr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert service request: %w", err)
	}
	return nil
}

func (r *PostgresServiceRequestRepo) AssignProvider(ctx context.Context, id, providerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_requests SET assigned_provider_id = $2, updated_at = $3
		WHERE id = $1 AND (assigned_provider_id IS NULL OR assigned_provider_id = $2)`,
		id, providerID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("assign provider %s to request %s: %w", providerID, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresServiceRequestRepo) ClearAssignment(ctx context.Context, id, providerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_requests SET assigned_provider_id = NULL, updated_at = $3
		WHERE id = $1 AND assigned_provider_id = $2`,
		id, providerID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("clear assignment of request %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
