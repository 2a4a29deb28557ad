package app

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/clock"
	"github.com/pedalpost/rental-api/internal/domain"
	"github.com/pedalpost/rental-api/internal/notify"
	"github.com/pedalpost/rental-api/internal/schedule"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetUnits(ctx context.Context, ids []string) ([]domain.InventoryUnit, error)
	// ReleaseOverlappingCancelled collapses item intervals of released
	// reservations that still claim time inside iv on the given units. This
	// is the maintenance sweep that makes a missed release catch up.
	ReleaseOverlappingCancelled(ctx context.Context, unitIDs []string, iv domain.Interval) error
	// ConflictingUnitIDs returns the subset of unitIDs with a live
	// reservation item intersecting iv.
	ConflictingUnitIDs(ctx context.Context, unitIDs []string, iv domain.Interval) ([]string, error)
	CreateReservation(ctx context.Context, r domain.Reservation, items []domain.ReservationItem) error

	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	// GetReservationForUpdate takes the exclusive header row lock that
	// serializes all actions on one reservation.
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	ListItems(ctx context.Context, reservationID string) ([]domain.ReservationItem, error)
	// LockItems locks the targeted item rows. An empty itemIDs locks all of
	// the reservation's items.
	LockItems(ctx context.Context, reservationID string, itemIDs []string) ([]domain.ReservationItem, error)
	MarkCheckedOut(ctx context.Context, itemIDs []string, at time.Time) error
	MarkCheckedIn(ctx context.Context, itemIDs []string, at time.Time) error
	CountOutstanding(ctx context.Context, reservationID string) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error
	RecordPayment(ctx context.Context, id, paymentRef string, at time.Time) error
	CollapseItems(ctx context.Context, reservationID string) error
	// ExtendIntervals raises the upper bound of the header and of items not
	// yet checked in and not collapsed.
	ExtendIntervals(ctx context.Context, reservationID string, newEnd, at time.Time) error
	ListNotes(ctx context.Context, reservationID string) ([]domain.Note, error)
	AddNote(ctx context.Context, n domain.Note) error
	// ExpireHolds cancels holds whose deadline passed, collapsing their
	// items, and reports how many were cancelled.
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
}

// PaymentResult is the only detail of the gateway response the state machine
// consumes.
type PaymentResult struct {
	TransactionID string
}

type PaymentGateway interface {
	Capture(ctx context.Context, amount decimal.Decimal, token string) (PaymentResult, error)
	Void(ctx context.Context, transactionID string) error
}

type WaiverChecker interface {
	HasAnyWaiver(ctx context.Context, reservationID string) (bool, error)
}

type Notifier interface {
	Publish(ctx context.Context, evt notify.Event) error
}

type ReservationService struct {
	repo     ReservationRepository
	gateway  PaymentGateway
	waivers  WaiverChecker
	notifier Notifier
	builder  *schedule.Builder
	clock    clock.Clock
	logger   *log.Logger
	holdTTL  time.Duration
}

const defaultHoldTTL = 15 * time.Minute

func NewReservationService(
	repo ReservationRepository,
	gateway PaymentGateway,
	waivers WaiverChecker,
	notifier Notifier,
	builder *schedule.Builder,
	clk clock.Clock,
	opts ...ReservationServiceOption,
) *ReservationService {
	svc := &ReservationService{
		repo:     repo,
		gateway:  gateway,
		waivers:  waivers,
		notifier: notifier,
		builder:  builder,
		clock:    clk,
		logger:   log.Default(),
		holdTTL:  defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithHoldTTL overrides the default deadline window for new holds.
func WithHoldTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithLogger overrides the logger used for post-commit publish failures.
func WithLogger(l *log.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if l != nil {
			s.logger = l
		}
	}
}

type CreateHoldInput struct {
	UnitIDs     []string
	Date        time.Time
	Policy      domain.Policy
	StartTime   *domain.TimeOfDay
	EndDate     *time.Time
	Source      domain.Source
	CustomerRef string
}

// CreateHold reserves the requested units for the candidate interval as a
// time-limited hold. The availability re-check inside the transaction fails
// fast; the storage exclusion constraint is what actually guarantees no two
// live reservations overlap, so a conflict slipping past the check surfaces
// as ErrSlotConflict when the insert is rejected.
func (s *ReservationService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Reservation, error) {
	unitIDs := dedupe(in.UnitIDs)
	if len(unitIDs) == 0 {
		return domain.Reservation{}, domain.ErrNoUnitsRequested
	}
	source := in.Source
	if source == "" {
		source = domain.SourceOnline
	}

	now := s.clock.Now()
	iv, err := s.builder.Interval(in.Policy, schedule.BuildParams{
		Date:      in.Date,
		StartTime: in.StartTime,
		EndDate:   in.EndDate,
		Now:       now,
		Immediate: source == domain.SourceWalkIn,
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	days := 0
	if _, multi := in.Policy.(domain.MultiDay); multi {
		days, err = schedule.InclusiveDays(in.Date, *in.EndDate)
		if err != nil {
			return domain.Reservation{}, err
		}
	}

	deadline := now.Add(s.holdTTL)
	var result domain.Reservation

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Catch up any missed releases before re-checking, so a cancelled
		// booking can never shadow the slot.
		if err := s.repo.ReleaseOverlappingCancelled(txCtx, unitIDs, iv); err != nil {
			return err
		}

		units, err := s.repo.GetUnits(txCtx, unitIDs)
		if err != nil {
			return err
		}
		if len(units) != len(unitIDs) {
			return domain.ErrUnitNotFound
		}
		for _, u := range units {
			if !u.Operational() {
				return domain.ErrUnitNotFound
			}
		}

		conflicts, err := s.repo.ConflictingUnitIDs(txCtx, unitIDs, iv)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return domain.ErrSlotConflict
		}

		quote, err := schedule.Price(units, in.Policy, days)
		if err != nil {
			return err
		}

		r := domain.Reservation{
			ID:            newID(),
			ShortRef:      newShortRef(),
			CustomerRef:   in.CustomerRef,
			Interval:      iv,
			PolicyCode:    in.Policy.Code(),
			Status:        domain.StatusHold,
			HoldExpiresAt: &deadline,
			TotalAmount:   quote.TotalAmount,
			TotalDeposit:  quote.TotalDeposit,
			Source:        source,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		items := make([]domain.ReservationItem, 0, len(quote.Items))
		for _, iq := range quote.Items {
			items = append(items, domain.ReservationItem{
				ID:            newID(),
				ReservationID: r.ID,
				UnitID:        iq.UnitID,
				Interval:      iv,
				Price:         iq.Price,
				Deposit:       iq.Deposit,
			})
		}

		if err := s.repo.CreateReservation(txCtx, r, items); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.publish(ctx, notify.Event{
		Type:          notify.EventHoldCreated,
		ReservationID: result.ID,
		ShortRef:      result.ShortRef,
		OccurredAt:    now,
	})
	return result, nil
}

type ConfirmPaymentInput struct {
	ReservationID string
	PaymentToken  string
}

// ConfirmPayment advances a live hold to paid. An expired hold is invisible
// to this transition and answers as not found; the slot it occupies stays
// blocked until something cancels it.
func (s *ReservationService) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) (domain.Reservation, error) {
	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusHold {
			return domain.NewInvalidState("confirm payment for", r.Status)
		}
		if !r.HoldLive(now) {
			return domain.ErrReservationNotFound
		}

		hasWaiver, err := s.waivers.HasAnyWaiver(txCtx, r.ID)
		if err != nil {
			return err
		}
		if !hasWaiver {
			return domain.ErrWaiverRequired
		}

		payment, err := s.gateway.Capture(txCtx, r.TotalAmount, in.PaymentToken)
		if err != nil {
			return err
		}

		if err := s.repo.RecordPayment(txCtx, r.ID, payment.TransactionID, now); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(txCtx, r.ID, domain.StatusPaid, now); err != nil {
			return err
		}
		if err := s.addNote(txCtx, r.ID, "", "payment captured, ref "+payment.TransactionID, now); err != nil {
			return err
		}

		r.Status = domain.StatusPaid
		r.PaymentRef = payment.TransactionID
		r.UpdatedAt = now
		result = r
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.publish(ctx, notify.Event{
		Type:          notify.EventPaymentConfirmed,
		ReservationID: result.ID,
		ShortRef:      result.ShortRef,
		OccurredAt:    now,
	})
	return result, nil
}

type ItemActionInput struct {
	ReservationID string
	// ItemIDs targets specific items; empty means every eligible item.
	ItemIDs []string
	Actor   string
}

type ItemActionResult struct {
	Status        domain.Status
	AffectedCount int
	AllReturned   bool
}

// CheckOut hands targeted items to the customer, advancing the reservation to
// active on the first hand-over.
func (s *ReservationService) CheckOut(ctx context.Context, in ItemActionInput) (ItemActionResult, error) {
	now := s.clock.Now()
	var result ItemActionResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusPaid && r.Status != domain.StatusActive {
			return domain.NewInvalidState("check out", r.Status)
		}

		items, err := s.repo.LockItems(txCtx, r.ID, in.ItemIDs)
		if err != nil {
			return err
		}
		if len(in.ItemIDs) > 0 && len(items) != len(dedupe(in.ItemIDs)) {
			return domain.ErrItemNotFound
		}

		targets := make([]string, 0, len(items))
		for _, it := range items {
			if it.CheckedOutAt != nil {
				if len(in.ItemIDs) > 0 {
					return domain.ErrAlreadyCheckedOut
				}
				continue
			}
			targets = append(targets, it.ID)
		}
		if len(targets) == 0 {
			return domain.ErrAlreadyCheckedOut
		}

		if err := s.repo.MarkCheckedOut(txCtx, targets, now); err != nil {
			return err
		}
		status := r.Status
		if status != domain.StatusActive {
			status = domain.StatusActive
			if err := s.repo.UpdateStatus(txCtx, r.ID, status, now); err != nil {
				return err
			}
		}
		if err := s.addNote(txCtx, r.ID, in.Actor, "checked out "+strconv.Itoa(len(targets))+" item(s)", now); err != nil {
			return err
		}

		result = ItemActionResult{Status: status, AffectedCount: len(targets)}
		return nil
	})
	if err != nil {
		return ItemActionResult{}, err
	}
	return result, nil
}

// CheckIn takes targeted items back; returning the last outstanding item
// completes the reservation.
func (s *ReservationService) CheckIn(ctx context.Context, in ItemActionInput) (ItemActionResult, error) {
	now := s.clock.Now()
	var result ItemActionResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusActive {
			return domain.NewInvalidState("check in", r.Status)
		}

		items, err := s.repo.LockItems(txCtx, r.ID, in.ItemIDs)
		if err != nil {
			return err
		}
		if len(in.ItemIDs) > 0 && len(items) != len(dedupe(in.ItemIDs)) {
			return domain.ErrItemNotFound
		}

		targets := make([]string, 0, len(items))
		for _, it := range items {
			if it.CheckedInAt != nil {
				if len(in.ItemIDs) > 0 {
					return domain.ErrAlreadyCheckedIn
				}
				continue
			}
			if it.CheckedOutAt == nil {
				if len(in.ItemIDs) > 0 {
					return domain.ErrNotCheckedOut
				}
				continue
			}
			targets = append(targets, it.ID)
		}
		if len(targets) == 0 {
			return domain.ErrNotCheckedOut
		}

		if err := s.repo.MarkCheckedIn(txCtx, targets, now); err != nil {
			return err
		}
		outstanding, err := s.repo.CountOutstanding(txCtx, r.ID)
		if err != nil {
			return err
		}
		status := r.Status
		if outstanding == 0 {
			status = domain.StatusCompleted
			if err := s.repo.UpdateStatus(txCtx, r.ID, status, now); err != nil {
				return err
			}
		}
		if err := s.addNote(txCtx, r.ID, in.Actor, "checked in "+strconv.Itoa(len(targets))+" item(s)", now); err != nil {
			return err
		}

		result = ItemActionResult{
			Status:        status,
			AffectedCount: len(targets),
			AllReturned:   outstanding == 0,
		}
		return nil
	})
	if err != nil {
		return ItemActionResult{}, err
	}
	return result, nil
}

type ExtendInput struct {
	ReservationID string
	NewEnd        time.Time
	Actor         string
}

// Extend raises the reservation's upper bound and that of its outstanding
// items. A newly introduced overlap on any unit is rejected by the exclusion
// constraint and surfaces as ErrSlotConflict.
func (s *ReservationService) Extend(ctx context.Context, in ExtendInput) (domain.Reservation, error) {
	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusActive {
			return domain.NewInvalidState("extend", r.Status)
		}
		if !in.NewEnd.After(r.Interval.End) {
			return domain.ErrInvalidExtension
		}

		if err := s.repo.ExtendIntervals(txCtx, r.ID, in.NewEnd, now); err != nil {
			return err
		}
		if err := s.addNote(txCtx, r.ID, in.Actor, "extended until "+in.NewEnd.UTC().Format(time.RFC3339), now); err != nil {
			return err
		}

		r.Interval.End = in.NewEnd
		r.UpdatedAt = now
		result = r
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

type CancelInput struct {
	ReservationID string
	Reason        string
	Actor         string
}

// Cancel releases a hold or an unpicked-up paid booking. The items' intervals
// collapse to empty, which frees the slots immediately; rows stay for audit.
func (s *ReservationService) Cancel(ctx context.Context, in CancelInput) (domain.Reservation, error) {
	now := s.clock.Now()
	r, err := s.release(ctx, in.ReservationID, domain.StatusCancelled, in, now)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.publish(ctx, notify.Event{
		Type:          notify.EventReservationCancelled,
		ReservationID: r.ID,
		ShortRef:      r.ShortRef,
		OccurredAt:    now,
	})
	return r, nil
}

// VoidPayment reverses a captured payment at the gateway and then releases
// the booking like a cancellation, recorded distinctly as voided.
func (s *ReservationService) VoidPayment(ctx context.Context, in CancelInput) (domain.Reservation, error) {
	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusPaid {
			return domain.NewInvalidState("void payment for", r.Status)
		}

		if err := s.gateway.Void(txCtx, r.PaymentRef); err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(txCtx, r.ID, domain.StatusVoided, now); err != nil {
			return err
		}
		if err := s.repo.CollapseItems(txCtx, r.ID); err != nil {
			return err
		}
		body := "payment voided"
		if in.Reason != "" {
			body += ": " + in.Reason
		}
		if err := s.addNote(txCtx, r.ID, in.Actor, body, now); err != nil {
			return err
		}

		r.Status = domain.StatusVoided
		r.UpdatedAt = now
		result = r
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.publish(ctx, notify.Event{
		Type:          notify.EventReservationCancelled,
		ReservationID: result.ID,
		ShortRef:      result.ShortRef,
		OccurredAt:    now,
	})
	return result, nil
}

type CompleteInput struct {
	ReservationID string
	Actor         string
}

// Complete is the administrative short-circuit to completed, bypassing
// per-item check-in.
func (s *ReservationService) Complete(ctx context.Context, in CompleteInput) (domain.Reservation, error) {
	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusPaid && r.Status != domain.StatusActive {
			return domain.NewInvalidState("complete", r.Status)
		}

		if err := s.repo.UpdateStatus(txCtx, r.ID, domain.StatusCompleted, now); err != nil {
			return err
		}
		if err := s.addNote(txCtx, r.ID, in.Actor, "completed manually", now); err != nil {
			return err
		}

		r.Status = domain.StatusCompleted
		r.UpdatedAt = now
		result = r
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// ExpireHolds cancels holds whose deadline has passed. Correctness never
// depends on this running; the expiry predicate already hides dead holds from
// confirm-payment. This just stops them blocking their slots.
func (s *ReservationService) ExpireHolds(ctx context.Context) (int, error) {
	now := s.clock.Now()
	var count int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		count, err = s.repo.ExpireHolds(txCtx, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ReservationDetail is the read model for a single booking.
type ReservationDetail struct {
	Reservation domain.Reservation
	Items       []domain.ReservationItem
	Notes       []domain.Note
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (ReservationDetail, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return ReservationDetail{}, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return ReservationDetail{}, err
	}
	notes, err := s.repo.ListNotes(ctx, id)
	if err != nil {
		return ReservationDetail{}, err
	}
	return ReservationDetail{Reservation: r, Items: items, Notes: notes}, nil
}

func (s *ReservationService) release(ctx context.Context, id string, to domain.Status, in CancelInput, now time.Time) (domain.Reservation, error) {
	var result domain.Reservation
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusHold && r.Status != domain.StatusPaid {
			return domain.NewInvalidState("cancel", r.Status)
		}

		if err := s.repo.UpdateStatus(txCtx, r.ID, to, now); err != nil {
			return err
		}
		if err := s.repo.CollapseItems(txCtx, r.ID); err != nil {
			return err
		}
		body := "cancelled"
		if in.Reason != "" {
			body += ": " + in.Reason
		}
		if err := s.addNote(txCtx, r.ID, in.Actor, body, now); err != nil {
			return err
		}

		r.Status = to
		r.UpdatedAt = now
		result = r
		return nil
	})
	return result, err
}

func (s *ReservationService) addNote(ctx context.Context, reservationID, actor, body string, now time.Time) error {
	if actor == "" {
		actor = "system"
	}
	return s.repo.AddNote(ctx, domain.Note{
		ID:            newID(),
		ReservationID: reservationID,
		Author:        actor,
		Body:          body,
		CreatedAt:     now,
	})
}

func (s *ReservationService) publish(ctx context.Context, evt notify.Event) {
	if s.notifier == nil {
		return
	}
	// Post-commit, best effort: a slow or failing notification can never
	// block or unwind the reservation transaction.
	if err := s.notifier.Publish(ctx, evt); err != nil {
		s.logger.Printf("WARN: publish %s for reservation %s: %v", evt.Type, evt.ReservationID, err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

