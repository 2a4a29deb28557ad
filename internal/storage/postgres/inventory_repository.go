package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedalpost/rental-api/internal/domain"
)

type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) CreateUnit(ctx context.Context, u domain.InventoryUnit) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const unitStmt = `
INSERT INTO inventory_units (id, name, category, size, deposit, status)
VALUES ($1, $2, $3, $4, $5::numeric, $6)`

		_, err := r.exec(txCtx, unitStmt,
			u.ID,
			u.Variant.Name,
			u.Variant.Category,
			u.Variant.Size,
			u.Deposit.StringFixed(2),
			string(u.Status),
		)
		if err != nil {
			return fmt.Errorf("create unit: %w", err)
		}

		const priceStmt = `INSERT INTO unit_prices (unit_id, policy_code, price) VALUES ($1, $2, $3::numeric)`
		for code, price := range u.Prices {
			if _, err := r.exec(txCtx, priceStmt, u.ID, string(code), price.StringFixed(2)); err != nil {
				return fmt.Errorf("create unit price %s: %w", code, err)
			}
		}
		return nil
	})
}

func (r *InventoryRepository) ListUnits(ctx context.Context) ([]domain.InventoryUnit, error) {
	const query = `
SELECT id, name, category, size, deposit::text, status
FROM inventory_units
ORDER BY category, name, size, id`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
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

func (r *InventoryRepository) UpdateUnitStatus(ctx context.Context, id string, status domain.UnitStatus) error {
	const stmt = `UPDATE inventory_units SET status = $2 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, id, string(status))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update unit status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func (r *InventoryRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *InventoryRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
