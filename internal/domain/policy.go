package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PolicyCode identifies a duration policy and keys the per-unit price table.
type PolicyCode string

const (
	PolicyTwoHour  PolicyCode = "2h"
	PolicyFourHour PolicyCode = "4h"
	PolicyFullDay  PolicyCode = "day"
	PolicyMultiDay PolicyCode = "multiday"

	// PriceExtraDay is not a bookable policy on its own; it keys the
	// per-additional-day rate used by multi-day pricing.
	PriceExtraDay PolicyCode = "extra_day"
)

// Policy is the closed set of duration policies. Implementations are the only
// three variants below; consumers dispatch with an exhaustive type switch.
type Policy interface {
	Code() PolicyCode
}

// Hourly rents for a fixed number of hours starting at a caller-chosen time.
type Hourly struct {
	PolicyCode PolicyCode
	Hours      int
}

func (p Hourly) Code() PolicyCode { return p.PolicyCode }

// FixedWindow rents for one calendar day within the shop's opening hours.
type FixedWindow struct{}

func (FixedWindow) Code() PolicyCode { return PolicyFullDay }

// MultiDay rents from a start date through an inclusive end date.
type MultiDay struct{}

func (MultiDay) Code() PolicyCode { return PolicyMultiDay }

// ParsePolicy maps a policy code to its variant. Unknown codes are rejected;
// there is no fallback branch.
func ParsePolicy(code PolicyCode) (Policy, error) {
	switch code {
	case PolicyTwoHour:
		return Hourly{PolicyCode: PolicyTwoHour, Hours: 2}, nil
	case PolicyFourHour:
		return Hourly{PolicyCode: PolicyFourHour, Hours: 4}, nil
	case PolicyFullDay:
		return FixedWindow{}, nil
	case PolicyMultiDay:
		return MultiDay{}, nil
	default:
		return nil, ErrUnknownPolicy
	}
}

// TimeOfDay is a wall-clock time within a day, used for shop opening hours and
// hourly booking start times.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" wall-clock strings.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("want HH:MM, got %q: %w", s, ErrValidationFailed)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("bad hour in %q: %w", s, ErrValidationFailed)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("bad minute in %q: %w", s, ErrValidationFailed)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// At anchors the wall-clock time on the given date in loc.
func (t TimeOfDay) At(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, loc)
}
