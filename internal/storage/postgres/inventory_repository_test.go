package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/domain"
	"github.com/pedalpost/rental-api/internal/testutil"
)

func TestInventoryRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewInventoryRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("create then list round trips unit and prices", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		unit := domain.InventoryUnit{
			ID:      "6a6d7a3e-0000-4000-8000-000000000101",
			Variant: domain.VariantKey{Name: "Cargo Bike", Category: "cargo", Size: "L"},
			Deposit: money("150.00"),
			Status:  domain.UnitAvailable,
			Prices: map[domain.PolicyCode]decimal.Decimal{
				domain.PolicyFullDay: money("45.00"),
				domain.PriceExtraDay: money("35.00"),
			},
		}
		if err := repo.CreateUnit(ctx, unit); err != nil {
			t.Fatalf("create unit: %v", err)
		}

		units, err := repo.ListUnits(ctx)
		if err != nil {
			t.Fatalf("list units: %v", err)
		}
		if len(units) != 1 {
			t.Fatalf("expected 1 unit, got %d", len(units))
		}
		got := units[0]
		if got.Variant.Name != "Cargo Bike" || got.Status != domain.UnitAvailable {
			t.Fatalf("unexpected unit %+v", got)
		}
		if !got.Deposit.Equal(money("150.00")) {
			t.Fatalf("expected deposit 150.00, got %s", got.Deposit)
		}
		if !got.Prices[domain.PolicyFullDay].Equal(money("45.00")) {
			t.Fatalf("expected day price 45.00, got %s", got.Prices[domain.PolicyFullDay])
		}
		if !got.Prices[domain.PriceExtraDay].Equal(money("35.00")) {
			t.Fatalf("expected extra day price 35.00, got %s", got.Prices[domain.PriceExtraDay])
		}
	})

	t.Run("update status", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		unitID := testutil.InsertUnit(t, ctx, pool, "City Bike", "city", "M", money("50.00"), cityPrices())

		if err := repo.UpdateUnitStatus(ctx, unitID, domain.UnitInRepair); err != nil {
			t.Fatalf("update status: %v", err)
		}

		units, err := repo.ListUnits(ctx)
		if err != nil {
			t.Fatalf("list units: %v", err)
		}
		if units[0].Status != domain.UnitInRepair {
			t.Fatalf("expected in_repair, got %s", units[0].Status)
		}
	})

	t.Run("update status maps lookup errors", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		err := repo.UpdateUnitStatus(ctx, "6a6d7a3e-0000-4000-8000-0000000001ff", domain.UnitInRepair)
		if !errors.Is(err, domain.ErrUnitNotFound) {
			t.Fatalf("expected ErrUnitNotFound, got %v", err)
		}
		err = repo.UpdateUnitStatus(ctx, "not-a-uuid", domain.UnitInRepair)
		if !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})
}
