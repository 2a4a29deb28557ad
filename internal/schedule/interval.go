// Package schedule holds the pure scheduling arithmetic: turning duration
// policies into half-open intervals and pricing units against them.
package schedule

import (
	"time"

	"github.com/pedalpost/rental-api/internal/domain"
)

// ShopHours is the daily opening window for fixed-window bookings.
type ShopHours struct {
	Open  domain.TimeOfDay
	Close domain.TimeOfDay
}

// Builder converts (date, policy, params) tuples into absolute half-open
// intervals. Shop hours and timezone are injected at construction so tests can
// supply arbitrary policies instead of reading ambient globals.
type Builder struct {
	loc   *time.Location
	hours ShopHours
}

func NewBuilder(loc *time.Location, hours ShopHours) *Builder {
	return &Builder{loc: loc, hours: hours}
}

// BuildParams carries the policy-specific inputs for one interval.
type BuildParams struct {
	// Date is the booking's calendar date (only year/month/day are used).
	Date time.Time
	// StartTime is required for hourly policies.
	StartTime *domain.TimeOfDay
	// EndDate is required for multi-day policies; inclusive.
	EndDate *time.Time
	// Now is consulted only for immediate walk-in fixed-window bookings.
	Now time.Time
	// Immediate marks a walk-in booking that starts right away rather than
	// at opening time.
	Immediate bool
}

// Interval computes the booked interval for a policy.
//
// Hourly: end = start + hours; crossing midnight rolls the end date forward
// naturally. FixedWindow: opening to closing instant of the date; an immediate
// walk-in starts at Now instead, and when Now is already past closing the end
// rolls to the next day's closing. MultiDay: start date's midnight through the
// day after the inclusive end date's midnight.
func (b *Builder) Interval(p domain.Policy, params BuildParams) (domain.Interval, error) {
	switch pol := p.(type) {
	case domain.Hourly:
		if params.StartTime == nil {
			return domain.Interval{}, domain.ErrStartTimeRequired
		}
		start := params.StartTime.At(params.Date, b.loc)
		return domain.Interval{Start: start, End: start.Add(time.Duration(pol.Hours) * time.Hour)}, nil

	case domain.FixedWindow:
		open := b.hours.Open.At(params.Date, b.loc)
		close := b.hours.Close.At(params.Date, b.loc)
		if !params.Immediate {
			return domain.Interval{Start: open, End: close}, nil
		}
		now := params.Now.In(b.loc)
		end := b.hours.Close.At(now, b.loc)
		if !now.Before(end) {
			end = b.hours.Close.At(now.AddDate(0, 0, 1), b.loc)
		}
		return domain.Interval{Start: now, End: end}, nil

	case domain.MultiDay:
		if params.EndDate == nil {
			return domain.Interval{}, domain.ErrEndDateRequired
		}
		days, err := InclusiveDays(params.Date, *params.EndDate)
		if err != nil {
			return domain.Interval{}, err
		}
		start := midnight(params.Date, b.loc)
		return domain.Interval{Start: start, End: start.AddDate(0, 0, days)}, nil

	default:
		return domain.Interval{}, domain.ErrUnknownPolicy
	}
}

// InclusiveDays counts calendar days from start through end, both inclusive.
// Pricing and the multi-day interval upper bound share this single count so
// the two can never disagree.
func InclusiveDays(start, end time.Time) (int, error) {
	s := midnight(start, time.UTC)
	e := midnight(end, time.UTC)
	if e.Before(s) {
		return 0, domain.ErrEndBeforeStart
	}
	return int(e.Sub(s).Hours()/24) + 1, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
