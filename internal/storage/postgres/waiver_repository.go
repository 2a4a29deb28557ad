package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedalpost/rental-api/internal/domain"
)

// WaiverRepository answers the one question the scheduling core asks of the
// waiver collaborator: does any signed waiver exist for a reservation.
type WaiverRepository struct {
	pool *pgxpool.Pool
}

func NewWaiverRepository(pool *pgxpool.Pool) *WaiverRepository {
	return &WaiverRepository{pool: pool}
}

func (r *WaiverRepository) HasAnyWaiver(ctx context.Context, reservationID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM waivers WHERE reservation_id = $1)`
	var exists bool
	if err := r.queryRow(ctx, query, reservationID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check waiver: %w", err)
	}
	return exists, nil
}

func (r *WaiverRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
