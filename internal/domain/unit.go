package domain

import "github.com/shopspring/decimal"

type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitInRepair  UnitStatus = "in_repair"
	UnitRetired   UnitStatus = "retired"
)

// VariantKey groups physically interchangeable units. Two units sharing a key
// are equivalent for availability purposes.
type VariantKey struct {
	Name     string
	Category string
	Size     string
}

// InventoryUnit is one physical rentable bicycle. The scheduling core only
// reads price and status; unit lifecycle belongs to the inventory side.
type InventoryUnit struct {
	ID      string
	Variant VariantKey
	// Prices maps policy codes (plus PriceExtraDay) to the rental rate.
	Prices  map[PolicyCode]decimal.Decimal
	Deposit decimal.Decimal
	Status  UnitStatus
}

// Operational reports whether the unit may be offered for rental at all.
func (u InventoryUnit) Operational() bool {
	return u.Status == UnitAvailable
}

// PriceFor looks up the rate for a policy code. The second result is false
// when the price table has no entry; callers must treat that as "not
// bookable", never as zero.
func (u InventoryUnit) PriceFor(code PolicyCode) (decimal.Decimal, bool) {
	p, ok := u.Prices[code]
	return p, ok
}
