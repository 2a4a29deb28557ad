package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/domain"
)

// ItemQuote is the priced line for one unit.
type ItemQuote struct {
	UnitID  string
	Price   decimal.Decimal
	Deposit decimal.Decimal
}

// Quote is the priced total for a set of units under one policy.
type Quote struct {
	Items        []ItemQuote
	TotalAmount  decimal.Decimal
	TotalDeposit decimal.Decimal
}

// Price computes rental cost and deposit for units booked under p. days is
// the inclusive day count and is only consulted for multi-day policies.
//
// The running total is rounded to cents after every accumulation step so
// float-style drift cannot compound across line items. Deposits are summed
// exactly per unit and rounded once on the total.
func Price(units []domain.InventoryUnit, p domain.Policy, days int) (Quote, error) {
	q := Quote{
		Items:        make([]ItemQuote, 0, len(units)),
		TotalAmount:  decimal.Zero,
		TotalDeposit: decimal.Zero,
	}
	for _, u := range units {
		price, err := unitPrice(u, p, days)
		if err != nil {
			return Quote{}, err
		}
		price = price.Round(2)
		q.Items = append(q.Items, ItemQuote{UnitID: u.ID, Price: price, Deposit: u.Deposit})
		q.TotalAmount = q.TotalAmount.Add(price).Round(2)
		q.TotalDeposit = q.TotalDeposit.Add(u.Deposit)
	}
	q.TotalDeposit = q.TotalDeposit.Round(2)
	return q, nil
}

func unitPrice(u domain.InventoryUnit, p domain.Policy, days int) (decimal.Decimal, error) {
	switch p.(type) {
	case domain.Hourly, domain.FixedWindow:
		rate, ok := u.PriceFor(p.Code())
		if !ok {
			return decimal.Zero, fmt.Errorf("unit %s policy %s: %w", u.ID, p.Code(), domain.ErrNotBookable)
		}
		return rate, nil

	case domain.MultiDay:
		// First day at the full-day rate, each additional day at the
		// extra-day rate, floored at zero additional days.
		first, ok := u.PriceFor(domain.PolicyFullDay)
		if !ok {
			return decimal.Zero, fmt.Errorf("unit %s policy %s: %w", u.ID, domain.PolicyFullDay, domain.ErrNotBookable)
		}
		extra, ok := u.PriceFor(domain.PriceExtraDay)
		if !ok {
			return decimal.Zero, fmt.Errorf("unit %s policy %s: %w", u.ID, domain.PriceExtraDay, domain.ErrNotBookable)
		}
		additional := days - 1
		if additional < 0 {
			additional = 0
		}
		return first.Add(extra.Mul(decimal.NewFromInt(int64(additional)))), nil

	default:
		return decimal.Zero, domain.ErrUnknownPolicy
	}
}
