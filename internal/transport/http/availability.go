package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pedalpost/rental-api/internal/app"
)

// AvailabilityFinder is the minimal interface needed to list openings.
type AvailabilityFinder interface {
	FindAvailability(ctx context.Context, in app.FindAvailabilityInput) ([]app.VariantGroup, error)
}

// HandleFindAvailability returns the handler for GET /availability.
func HandleFindAvailability(svc AvailabilityFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params, err := parseBookingParams(q.Get("policy"), q.Get("date"), q.Get("start"), q.Get("end_date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		groups, err := svc.FindAvailability(r.Context(), app.FindAvailabilityInput{
			Date:      params.date,
			Policy:    params.policy,
			StartTime: params.startTime,
			EndDate:   params.endDate,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]variantGroupResponse, 0, len(groups))
		for _, g := range groups {
			resp = append(resp, variantGroupResponse{
				Name:      g.Variant.Name,
				Category:  g.Variant.Category,
				Size:      g.Variant.Size,
				Available: g.Available,
				Price:     g.Price.StringFixed(2),
				Deposit:   g.Deposit.StringFixed(2),
				UnitIDs:   g.UnitIDs,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(availabilityResponse{Groups: resp})
	}
}

type availabilityResponse struct {
	Groups []variantGroupResponse `json:"groups"`
}

type variantGroupResponse struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Size      string   `json:"size"`
	Available int      `json:"available"`
	Price     string   `json:"price"`
	Deposit   string   `json:"deposit"`
	UnitIDs   []string `json:"unit_ids"`
}
