package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/domain"
)

type fakeInventoryRepo struct {
	created []domain.InventoryUnit
	status  map[string]domain.UnitStatus
}

func (f *fakeInventoryRepo) CreateUnit(_ context.Context, u domain.InventoryUnit) error {
	f.created = append(f.created, u)
	return nil
}

func (f *fakeInventoryRepo) ListUnits(context.Context) ([]domain.InventoryUnit, error) {
	return f.created, nil
}

func (f *fakeInventoryRepo) UpdateUnitStatus(_ context.Context, id string, status domain.UnitStatus) error {
	if f.status == nil {
		f.status = make(map[string]domain.UnitStatus)
	}
	f.status[id] = status
	return nil
}

func TestInventoryService_CreateUnit(t *testing.T) {
	t.Parallel()

	t.Run("creates an available unit with a fresh id", func(t *testing.T) {
		repo := &fakeInventoryRepo{}
		svc := NewInventoryService(repo)

		u, err := svc.CreateUnit(context.Background(), CreateUnitInput{
			Name:     "City Bike",
			Category: "city",
			Size:     "M",
			Deposit:  decimal.RequireFromString("50.00"),
			Prices: map[domain.PolicyCode]decimal.Decimal{
				domain.PolicyTwoHour: decimal.RequireFromString("12.50"),
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if u.ID == "" {
			t.Fatalf("expected id to be set")
		}
		if u.Status != domain.UnitAvailable {
			t.Fatalf("expected status available, got %s", u.Status)
		}
		if len(repo.created) != 1 {
			t.Fatalf("expected 1 created unit, got %d", len(repo.created))
		}
	})

	t.Run("rejects missing name", func(t *testing.T) {
		svc := NewInventoryService(&fakeInventoryRepo{})
		_, err := svc.CreateUnit(context.Background(), CreateUnitInput{Category: "city"})
		if !errors.Is(err, domain.ErrValidationFailed) {
			t.Fatalf("expected ErrValidationFailed, got %v", err)
		}
	})

	t.Run("rejects negative price", func(t *testing.T) {
		svc := NewInventoryService(&fakeInventoryRepo{})
		_, err := svc.CreateUnit(context.Background(), CreateUnitInput{
			Name:     "City Bike",
			Category: "city",
			Prices: map[domain.PolicyCode]decimal.Decimal{
				domain.PolicyTwoHour: decimal.RequireFromString("-1"),
			},
		})
		if !errors.Is(err, domain.ErrValidationFailed) {
			t.Fatalf("expected ErrValidationFailed, got %v", err)
		}
	})
}

func TestInventoryService_SetUnitStatus(t *testing.T) {
	t.Parallel()

	repo := &fakeInventoryRepo{}
	svc := NewInventoryService(repo)

	if err := svc.SetUnitStatus(context.Background(), "u1", domain.UnitInRepair); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.status["u1"] != domain.UnitInRepair {
		t.Fatalf("expected status in_repair, got %s", repo.status["u1"])
	}

	if err := svc.SetUnitStatus(context.Background(), "u1", domain.UnitStatus("broken")); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}
