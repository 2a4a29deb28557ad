package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedalpost/rental-api/internal/domain"
)

type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

// ListOpenUnits returns operational units with no live reservation item
// intersecting iv. Lock-free snapshot; hold creation re-validates under lock.
func (r *AvailabilityRepository) ListOpenUnits(ctx context.Context, iv domain.Interval) ([]domain.InventoryUnit, error) {
	const query = `
SELECT u.id, u.name, u.category, u.size, u.deposit::text, u.status
FROM inventory_units u
WHERE u.status = 'available'
  AND NOT EXISTS (
	SELECT 1
	FROM reservation_items ri
	JOIN reservations res ON res.id = ri.reservation_id
	WHERE ri.unit_id = u.id
	  AND res.status NOT IN ('cancelled', 'voided')
	  AND ri.starts_at < $2
	  AND ri.ends_at > $1
  )
ORDER BY u.category, u.name, u.size, u.id`

	rows, err := r.query(ctx, query, iv.Start, iv.End)
	if err != nil {
		return nil, fmt.Errorf("list open units: %w", err)
	}
	units, err := scanUnits(rows)
	if err != nil {
		return nil, err
	}
	if err := loadPrices(ctx, r, units); err != nil {
		return nil, err
	}
	return units, nil
}

func (r *AvailabilityRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
