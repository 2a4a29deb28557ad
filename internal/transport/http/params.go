package http

import (
	"fmt"
	"time"

	"github.com/pedalpost/rental-api/internal/domain"
)

const dateLayout = "2006-01-02"

// bookingParams is the parsed (policy, date, policy-specific inputs) tuple
// shared by the availability and create-hold endpoints.
type bookingParams struct {
	policy    domain.Policy
	date      time.Time
	startTime *domain.TimeOfDay
	endDate   *time.Time
}

func parseBookingParams(policyCode, dateStr, startStr, endDateStr string) (bookingParams, error) {
	policy, err := domain.ParsePolicy(domain.PolicyCode(policyCode))
	if err != nil {
		return bookingParams{}, err
	}

	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return bookingParams{}, fmt.Errorf("bad date %q: %w", dateStr, domain.ErrValidationFailed)
	}

	out := bookingParams{policy: policy, date: date}

	if startStr != "" {
		st, err := domain.ParseTimeOfDay(startStr)
		if err != nil {
			return bookingParams{}, err
		}
		out.startTime = &st
	}
	if endDateStr != "" {
		ed, err := time.Parse(dateLayout, endDateStr)
		if err != nil {
			return bookingParams{}, fmt.Errorf("bad end date %q: %w", endDateStr, domain.ErrValidationFailed)
		}
		out.endDate = &ed
	}
	return out, nil
}
