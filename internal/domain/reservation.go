package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusHold      Status = "hold"
	StatusPaid      Status = "paid"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusVoided    Status = "voided"
)

// Released reports whether the status is a terminal released state, meaning
// the reservation's items no longer claim their time slots.
func (s Status) Released() bool {
	return s == StatusCancelled || s == StatusVoided
}

type Source string

const (
	SourceOnline Source = "online"
	SourceWalkIn Source = "walk_in"
)

// Reservation is the booking aggregate header. Its interval is the union
// bound of its items, kept for header-level queries.
type Reservation struct {
	ID            string
	ShortRef      string
	CustomerRef   string
	Interval      Interval
	PolicyCode    PolicyCode
	Status        Status
	HoldExpiresAt *time.Time
	PaymentRef    string
	TotalAmount   decimal.Decimal
	TotalDeposit  decimal.Decimal
	Source        Source
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HoldLive reports whether the reservation is a hold whose deadline has not
// passed. An expired hold still occupies its slot but is otherwise invisible
// to the confirm-payment transition.
func (r Reservation) HoldLive(now time.Time) bool {
	return r.Status == StatusHold && r.HoldExpiresAt != nil && r.HoldExpiresAt.After(now)
}

// ReservationItem commits one inventory unit to one reservation for an
// interval. For any two items on the same unit whose reservations are not
// released, the intervals must not overlap; the storage exclusion constraint
// enforces this.
type ReservationItem struct {
	ID            string
	ReservationID string
	UnitID        string
	Interval      Interval
	Price         decimal.Decimal
	Deposit       decimal.Decimal
	CheckedOutAt  *time.Time
	CheckedInAt   *time.Time
}

// Outstanding reports whether the item is still out with the customer or not
// yet handed over.
func (it ReservationItem) Outstanding() bool {
	return it.CheckedInAt == nil
}

// Note is one append-only audit entry on a reservation.
type Note struct {
	ID            string
	ReservationID string
	Author        string
	Body          string
	CreatedAt     time.Time
}
