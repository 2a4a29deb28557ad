package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pedalpost/rental-api/internal/app"
	"github.com/pedalpost/rental-api/internal/domain"
)

// ReservationCore is the scheduling engine surface the reservation endpoints
// drive.
type ReservationCore interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Reservation, error)
	ConfirmPayment(ctx context.Context, in app.ConfirmPaymentInput) (domain.Reservation, error)
	CheckOut(ctx context.Context, in app.ItemActionInput) (app.ItemActionResult, error)
	CheckIn(ctx context.Context, in app.ItemActionInput) (app.ItemActionResult, error)
	Extend(ctx context.Context, in app.ExtendInput) (domain.Reservation, error)
	Cancel(ctx context.Context, in app.CancelInput) (domain.Reservation, error)
	VoidPayment(ctx context.Context, in app.CancelInput) (domain.Reservation, error)
	Complete(ctx context.Context, in app.CompleteInput) (domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (app.ReservationDetail, error)
}

// ReservationHandler carries the reservation endpoints.
type ReservationHandler struct {
	svc ReservationCore
}

func NewReservationHandler(svc ReservationCore) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type createReservationRequest struct {
	UnitIDs     []string `json:"unit_ids"`
	Date        string   `json:"date"`
	Policy      string   `json:"policy"`
	StartTime   string   `json:"start_time,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Source      string   `json:"source,omitempty"`
	CustomerRef string   `json:"customer_ref,omitempty"`
}

func (r createReservationRequest) validate() error {
	if len(r.UnitIDs) == 0 {
		return domain.ErrNoUnitsRequested
	}
	if r.Date == "" || r.Policy == "" {
		return fmt.Errorf("date and policy are required: %w", domain.ErrValidationFailed)
	}
	switch r.Source {
	case "", string(domain.SourceOnline), string(domain.SourceWalkIn):
	default:
		return fmt.Errorf("unknown source %q: %w", r.Source, domain.ErrValidationFailed)
	}
	return nil
}

type reservationResponse struct {
	ID            string     `json:"id"`
	ShortRef      string     `json:"short_ref"`
	Status        string     `json:"status"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Policy        string     `json:"policy"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	TotalAmount   string     `json:"total_amount"`
	TotalDeposit  string     `json:"total_deposit"`
	Source        string     `json:"source"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            r.ID,
		ShortRef:      r.ShortRef,
		Status:        string(r.Status),
		StartsAt:      r.Interval.Start,
		EndsAt:        r.Interval.End,
		Policy:        string(r.PolicyCode),
		HoldExpiresAt: r.HoldExpiresAt,
		TotalAmount:   r.TotalAmount.StringFixed(2),
		TotalDeposit:  r.TotalDeposit.StringFixed(2),
		Source:        string(r.Source),
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeServiceError(w, err)
		return
	}
	params, err := parseBookingParams(req.Policy, req.Date, req.StartTime, req.EndDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.svc.CreateHold(r.Context(), app.CreateHoldInput{
		UnitIDs:     req.UnitIDs,
		Date:        params.date,
		Policy:      params.policy,
		StartTime:   params.startTime,
		EndDate:     params.endDate,
		Source:      domain.Source(req.Source),
		CustomerRef: req.CustomerRef,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toReservationResponse(res))
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetReservation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]itemResponse, 0, len(detail.Items))
	for _, it := range detail.Items {
		items = append(items, itemResponse{
			ID:           it.ID,
			UnitID:       it.UnitID,
			StartsAt:     it.Interval.Start,
			EndsAt:       it.Interval.End,
			Price:        it.Price.StringFixed(2),
			Deposit:      it.Deposit.StringFixed(2),
			CheckedOutAt: it.CheckedOutAt,
			CheckedInAt:  it.CheckedInAt,
		})
	}
	notes := make([]noteResponse, 0, len(detail.Notes))
	for _, n := range detail.Notes {
		notes = append(notes, noteResponse{
			Author:    n.Author,
			Body:      n.Body,
			CreatedAt: n.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, reservationDetailResponse{
		Reservation: toReservationResponse(detail.Reservation),
		Items:       items,
		Notes:       notes,
	})
}

type reservationDetailResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Items       []itemResponse      `json:"items"`
	Notes       []noteResponse      `json:"notes"`
}

type itemResponse struct {
	ID           string     `json:"id"`
	UnitID       string     `json:"unit_id"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       time.Time  `json:"ends_at"`
	Price        string     `json:"price"`
	Deposit      string     `json:"deposit"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

type noteResponse struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type confirmRequest struct {
	PaymentToken string `json:"payment_token"`
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PaymentToken == "" {
		writeServiceError(w, fmt.Errorf("payment_token is required: %w", domain.ErrValidationFailed))
		return
	}

	res, err := h.svc.ConfirmPayment(r.Context(), app.ConfirmPaymentInput{
		ReservationID: mux.Vars(r)["id"],
		PaymentToken:  req.PaymentToken,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

type itemActionRequest struct {
	ItemIDs []string `json:"item_ids,omitempty"`
	Actor   string   `json:"actor,omitempty"`
}

type itemActionResponse struct {
	Status        string `json:"status"`
	AffectedCount int    `json:"affected_count"`
	AllReturned   *bool  `json:"all_returned,omitempty"`
}

func (h *ReservationHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req itemActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.CheckOut(r.Context(), app.ItemActionInput{
		ReservationID: mux.Vars(r)["id"],
		ItemIDs:       req.ItemIDs,
		Actor:         req.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, itemActionResponse{
		Status:        string(res.Status),
		AffectedCount: res.AffectedCount,
	})
}

func (h *ReservationHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req itemActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.CheckIn(r.Context(), app.ItemActionInput{
		ReservationID: mux.Vars(r)["id"],
		ItemIDs:       req.ItemIDs,
		Actor:         req.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	allReturned := res.AllReturned
	respondJSON(w, http.StatusOK, itemActionResponse{
		Status:        string(res.Status),
		AffectedCount: res.AffectedCount,
		AllReturned:   &allReturned,
	})
}

type extendRequest struct {
	NewEnd time.Time `json:"new_end"`
	Actor  string    `json:"actor,omitempty"`
}

func (h *ReservationHandler) Extend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NewEnd.IsZero() {
		writeServiceError(w, fmt.Errorf("new_end is required: %w", domain.ErrValidationFailed))
		return
	}

	res, err := h.svc.Extend(r.Context(), app.ExtendInput{
		ReservationID: mux.Vars(r)["id"],
		NewEnd:        req.NewEnd,
		Actor:         req.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Cancel(r.Context(), app.CancelInput{
		ReservationID: mux.Vars(r)["id"],
		Reason:        req.Reason,
		Actor:         req.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) Void(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.VoidPayment(r.Context(), app.CancelInput{
		ReservationID: mux.Vars(r)["id"],
		Reason:        req.Reason,
		Actor:         req.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Complete(r.Context(), app.CompleteInput{
		ReservationID: mux.Vars(r)["id"],
		Actor:         req.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationResponse(res))
}

// decodeBody decodes a JSON body, tolerating an empty body for endpoints
// whose fields are all optional.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
