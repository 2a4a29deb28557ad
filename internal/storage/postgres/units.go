package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/domain"
)

// queryer is implemented by every repository in this package; helpers below
// stay tx-aware through it.
type queryer interface {
	query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanUnits(rows pgx.Rows) ([]domain.InventoryUnit, error) {
	defer rows.Close()
	var out []domain.InventoryUnit
	for rows.Next() {
		var (
			u          domain.InventoryUnit
			depositTxt string
			status     string
		)
		err := rows.Scan(
			&u.ID,
			&u.Variant.Name,
			&u.Variant.Category,
			&u.Variant.Size,
			&depositTxt,
			&status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		if u.Deposit, err = decimal.NewFromString(depositTxt); err != nil {
			return nil, fmt.Errorf("parse unit deposit: %w", err)
		}
		u.Status = domain.UnitStatus(status)
		u.Prices = make(map[domain.PolicyCode]decimal.Decimal)
		out = append(out, u)
	}
	return out, rows.Err()
}

// loadPrices fills the per-duration price tables of the given units.
func loadPrices(ctx context.Context, q queryer, units []domain.InventoryUnit) error {
	if len(units) == 0 {
		return nil
	}
	ids := make([]string, 0, len(units))
	byID := make(map[string]*domain.InventoryUnit, len(units))
	for i := range units {
		ids = append(ids, units[i].ID)
		byID[units[i].ID] = &units[i]
	}

	const query = `
SELECT unit_id, policy_code, price::text
FROM unit_prices
WHERE unit_id = ANY($1::uuid[])`

	rows, err := q.query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var unitID, code, priceTxt string
		if err := rows.Scan(&unitID, &code, &priceTxt); err != nil {
			return fmt.Errorf("scan price: %w", err)
		}
		price, err := decimal.NewFromString(priceTxt)
		if err != nil {
			return fmt.Errorf("parse price: %w", err)
		}
		if u, ok := byID[unitID]; ok {
			u.Prices[domain.PolicyCode(code)] = price
		}
	}
	return rows.Err()
}
