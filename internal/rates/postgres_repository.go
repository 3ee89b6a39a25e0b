package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodiemap/foodiemap/internal/routing"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// The table layout is Schema; EnsureSchema creates it when missing.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL transport rates repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Schema is the DDL for the transport_rates table.
const Schema = `
	CREATE TABLE IF NOT EXISTS transport_rates (
		mode        TEXT PRIMARY KEY,
		rate_per_km DOUBLE PRECISION NOT NULL CHECK (rate_per_km >= 0),
		currency    TEXT NOT NULL DEFAULT 'VND',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// EnsureSchema creates the transport_rates table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating transport_rates: %w", err)
	}
	return nil
}

// GetRate retrieves the rate for a single transport mode.
func (r *PostgresRepository) GetRate(ctx context.Context, mode routing.TransportMode) (*Rate, error) {
	query := `
		SELECT mode, rate_per_km, currency, updated_at
		FROM transport_rates
		WHERE mode = $1
	`

	rate, err := scanRate(r.pool.QueryRow(ctx, query, string(mode)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRateNotFound
		}
		return nil, err
	}
	return rate, nil
}

// ListRates retrieves all stored rates ordered by mode.
func (r *PostgresRepository) ListRates(ctx context.Context) ([]*Rate, error) {
	query := `
		SELECT mode, rate_per_km, currency, updated_at
		FROM transport_rates
		ORDER BY mode
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Rate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// UpsertRates creates or updates multiple rates atomically.
func (r *PostgresRepository) UpsertRates(ctx context.Context, rates []*Rate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	query := `
		INSERT INTO transport_rates (mode, rate_per_km, currency, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (mode) DO UPDATE SET
			rate_per_km = EXCLUDED.rate_per_km,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	for _, rate := range rates {
		if _, err := tx.Exec(ctx, query, string(rate.Mode), rate.RatePerKm, rate.Currency, now); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteRate removes the stored rate for a mode.
func (r *PostgresRepository) DeleteRate(ctx context.Context, mode routing.TransportMode) error {
	query := `DELETE FROM transport_rates WHERE mode = $1`
	_, err := r.pool.Exec(ctx, query, string(mode))
	return err
}

func scanRate(row pgx.Row) (*Rate, error) {
	var (
		rate Rate
		mode string
	)
	if err := row.Scan(&mode, &rate.RatePerKm, &rate.Currency, &rate.UpdatedAt); err != nil {
		return nil, err
	}
	rate.Mode = routing.TransportMode(mode)
	return &rate, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
