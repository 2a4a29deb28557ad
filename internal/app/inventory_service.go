package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/domain"
)

type InventoryRepository interface {
	CreateUnit(ctx context.Context, u domain.InventoryUnit) error
	ListUnits(ctx context.Context) ([]domain.InventoryUnit, error)
	UpdateUnitStatus(ctx context.Context, id string, status domain.UnitStatus) error
}

// InventoryService is the thin admin surface owning the units the scheduling
// core reads from.
type InventoryService struct {
	repo InventoryRepository
}

func NewInventoryService(repo InventoryRepository) *InventoryService {
	return &InventoryService{repo: repo}
}

type CreateUnitInput struct {
	Name     string
	Category string
	Size     string
	Deposit  decimal.Decimal
	Prices   map[domain.PolicyCode]decimal.Decimal
}

func (s *InventoryService) CreateUnit(ctx context.Context, in CreateUnitInput) (domain.InventoryUnit, error) {
	if in.Name == "" {
		return domain.InventoryUnit{}, fmt.Errorf("unit name is required: %w", domain.ErrValidationFailed)
	}
	if in.Category == "" {
		return domain.InventoryUnit{}, fmt.Errorf("unit category is required: %w", domain.ErrValidationFailed)
	}
	for code, p := range in.Prices {
		if p.IsNegative() {
			return domain.InventoryUnit{}, fmt.Errorf("price %s must not be negative: %w", code, domain.ErrValidationFailed)
		}
	}
	if in.Deposit.IsNegative() {
		return domain.InventoryUnit{}, fmt.Errorf("deposit must not be negative: %w", domain.ErrValidationFailed)
	}

	u := domain.InventoryUnit{
		ID: newID(),
		Variant: domain.VariantKey{
			Name:     in.Name,
			Category: in.Category,
			Size:     in.Size,
		},
		Prices:  in.Prices,
		Deposit: in.Deposit,
		Status:  domain.UnitAvailable,
	}
	if err := s.repo.CreateUnit(ctx, u); err != nil {
		return domain.InventoryUnit{}, err
	}
	return u, nil
}

func (s *InventoryService) ListUnits(ctx context.Context) ([]domain.InventoryUnit, error) {
	return s.repo.ListUnits(ctx)
}

func (s *InventoryService) SetUnitStatus(ctx context.Context, id string, status domain.UnitStatus) error {
	switch status {
	case domain.UnitAvailable, domain.UnitInRepair, domain.UnitRetired:
	default:
		return fmt.Errorf("unknown unit status %q: %w", status, domain.ErrValidationFailed)
	}
	return s.repo.UpdateUnitStatus(ctx, id, status)
}
