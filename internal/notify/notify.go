// Package notify carries post-commit side-effect tasks (confirmation emails,
// receipts) out of the reservation transaction and onto a durable queue, so a
// slow or failing notification can never block or partially fail a booking.
package notify

import (
	"context"
	"time"
)

type EventType string

const (
	EventHoldCreated          EventType = "hold_created"
	EventPaymentConfirmed     EventType = "payment_confirmed"
	EventReservationCancelled EventType = "reservation_cancelled"
)

// Event is one at-least-once task for the notification worker. Consumers must
// tolerate duplicate delivery.
type Event struct {
	Type          EventType `json:"type"`
	ReservationID string    `json:"reservation_id"`
	ShortRef      string    `json:"short_ref"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher hands an event to the queue. Implementations are called only
// after the reservation transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}
