package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pedalpost/rental-api/internal/domain"
)

const (
	codeNotFound          = "not_found"
	codeInvalidBody       = "invalid_request_body"
	codeInvalidID         = "invalid_id"
	codeValidationFailed  = "validation_failed"
	codeInvalidState      = "invalid_state"
	codeSlotConflict      = "slot_conflict"
	codeNotBookable       = "not_bookable"
	codeWaiverRequired    = "waiver_required"
	codePaymentDeclined   = "payment_declined"
	codeDependencyFailure = "dependency_failure"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps domain errors onto the HTTP error taxonomy. Conflict
// and invalid-state are distinct codes so a client can tell "pick another
// slot" apart from "wrong step". Unknown errors never leak detail.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrUnitNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())

	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())

	case errors.Is(err, domain.ErrUnknownPolicy),
		errors.Is(err, domain.ErrStartTimeRequired),
		errors.Is(err, domain.ErrEndDateRequired),
		errors.Is(err, domain.ErrEndBeforeStart),
		errors.Is(err, domain.ErrNoUnitsRequested),
		errors.Is(err, domain.ErrInvalidExtension),
		errors.Is(err, domain.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())

	case errors.Is(err, domain.ErrSlotConflict):
		writeError(w, http.StatusConflict, codeSlotConflict, err.Error())

	case errors.Is(err, domain.ErrNotBookable):
		writeError(w, http.StatusConflict, codeNotBookable, err.Error())

	case errors.Is(err, domain.ErrWaiverRequired):
		writeError(w, http.StatusConflict, codeWaiverRequired, err.Error())

	case domain.IsInvalidState(err),
		errors.Is(err, domain.ErrAlreadyCheckedOut),
		errors.Is(err, domain.ErrAlreadyCheckedIn),
		errors.Is(err, domain.ErrNotCheckedOut):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())

	case errors.Is(err, domain.ErrPaymentDeclined):
		writeError(w, http.StatusPaymentRequired, codePaymentDeclined, err.Error())

	case domain.IsDependencyFailure(err):
		writeError(w, http.StatusBadGateway, codeDependencyFailure, "upstream dependency failed")

	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
