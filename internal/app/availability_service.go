package app

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/clock"
	"github.com/pedalpost/rental-api/internal/domain"
	"github.com/pedalpost/rental-api/internal/schedule"
)

type AvailabilityRepository interface {
	// ListOpenUnits returns operational units with no reservation item whose
	// interval intersects iv and whose reservation is not released.
	ListOpenUnits(ctx context.Context, iv domain.Interval) ([]domain.InventoryUnit, error)
}

// VariantGroup is one set of interchangeable units open for a candidate
// interval, with the price fields for the requested policy.
type VariantGroup struct {
	Variant   domain.VariantKey
	Available int
	Price     decimal.Decimal
	Deposit   decimal.Decimal
	UnitIDs   []string
}

type AvailabilityService struct {
	repo    AvailabilityRepository
	builder *schedule.Builder
	clock   clock.Clock
}

func NewAvailabilityService(repo AvailabilityRepository, builder *schedule.Builder, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{
		repo:    repo,
		builder: builder,
		clock:   clk,
	}
}

type FindAvailabilityInput struct {
	Date      time.Time
	Policy    domain.Policy
	StartTime *domain.TimeOfDay
	EndDate   *time.Time
}

// FindAvailability reports variant groups with at least one open unit for the
// candidate interval. The snapshot takes no locks; a subsequent hold creation
// re-validates under lock and the storage exclusion constraint.
func (s *AvailabilityService) FindAvailability(ctx context.Context, in FindAvailabilityInput) ([]VariantGroup, error) {
	iv, err := s.builder.Interval(in.Policy, schedule.BuildParams{
		Date:      in.Date,
		StartTime: in.StartTime,
		EndDate:   in.EndDate,
		Now:       s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	units, err := s.repo.ListOpenUnits(ctx, iv)
	if err != nil {
		return nil, err
	}

	groups := make(map[domain.VariantKey]*VariantGroup)
	for _, u := range units {
		price, ok := displayPrice(u, in.Policy)
		if !ok {
			// No price for this duration means the unit is not bookable
			// under this policy; it is simply not offered.
			continue
		}
		g, exists := groups[u.Variant]
		if !exists {
			g = &VariantGroup{
				Variant: u.Variant,
				Price:   price,
				Deposit: u.Deposit,
			}
			groups[u.Variant] = g
		}
		g.Available++
		g.UnitIDs = append(g.UnitIDs, u.ID)
	}

	out := make([]VariantGroup, 0, len(groups))
	for _, g := range groups {
		sort.Strings(g.UnitIDs)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Variant, out[j].Variant
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Size < b.Size
	})
	return out, nil
}

// displayPrice picks the price field reported for a policy. Multi-day listings
// show the first-day rate and additionally require an extra-day rate so a
// listed unit is guaranteed priceable end to end.
func displayPrice(u domain.InventoryUnit, p domain.Policy) (decimal.Decimal, bool) {
	if _, ok := p.(domain.MultiDay); ok {
		first, okFirst := u.PriceFor(domain.PolicyFullDay)
		_, okExtra := u.PriceFor(domain.PriceExtraDay)
		return first, okFirst && okExtra
	}
	return u.PriceFor(p.Code())
}
