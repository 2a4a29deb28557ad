package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/app"
	"github.com/pedalpost/rental-api/internal/domain"
)

// InventoryAdmin is the unit-management surface.
type InventoryAdmin interface {
	CreateUnit(ctx context.Context, in app.CreateUnitInput) (domain.InventoryUnit, error)
	ListUnits(ctx context.Context) ([]domain.InventoryUnit, error)
	SetUnitStatus(ctx context.Context, id string, status domain.UnitStatus) error
}

// HoldExpirer cancels overdue holds on demand.
type HoldExpirer interface {
	ExpireHolds(ctx context.Context) (int, error)
}

type AdminHandler struct {
	inventory InventoryAdmin
	expirer   HoldExpirer
}

func NewAdminHandler(inventory InventoryAdmin, expirer HoldExpirer) *AdminHandler {
	return &AdminHandler{inventory: inventory, expirer: expirer}
}

type createUnitRequest struct {
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Size     string            `json:"size,omitempty"`
	Deposit  string            `json:"deposit"`
	Prices   map[string]string `json:"prices"`
}

type unitResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Size     string            `json:"size"`
	Deposit  string            `json:"deposit"`
	Status   string            `json:"status"`
	Prices   map[string]string `json:"prices"`
}

func toUnitResponse(u domain.InventoryUnit) unitResponse {
	prices := make(map[string]string, len(u.Prices))
	for code, p := range u.Prices {
		prices[string(code)] = p.StringFixed(2)
	}
	return unitResponse{
		ID:       u.ID,
		Name:     u.Variant.Name,
		Category: u.Variant.Category,
		Size:     u.Variant.Size,
		Deposit:  u.Deposit.StringFixed(2),
		Status:   string(u.Status),
		Prices:   prices,
	}
}

func (h *AdminHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deposit, err := parseMoney(req.Deposit, "deposit")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	prices := make(map[domain.PolicyCode]decimal.Decimal, len(req.Prices))
	for code, raw := range req.Prices {
		p, err := parseMoney(raw, "price "+code)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		prices[domain.PolicyCode(code)] = p
	}

	unit, err := h.inventory.CreateUnit(r.Context(), app.CreateUnitInput{
		Name:     req.Name,
		Category: req.Category,
		Size:     req.Size,
		Deposit:  deposit,
		Prices:   prices,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUnitResponse(unit))
}

func (h *AdminHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.inventory.ListUnits(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]unitResponse, 0, len(units))
	for _, u := range units {
		resp = append(resp, toUnitResponse(u))
	}
	respondJSON(w, http.StatusOK, resp)
}

type updateUnitStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) UpdateUnitStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updateUnitStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.inventory.SetUnitStatus(r.Context(), id, domain.UnitStatus(req.Status)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expireHoldsResponse struct {
	Expired int `json:"expired"`
}

func (h *AdminHandler) ExpireHolds(w http.ResponseWriter, r *http.Request) {
	count, err := h.expirer.ExpireHolds(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, expireHoldsResponse{Expired: count})
}

func parseMoney(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad %s %q: %w", field, raw, domain.ErrValidationFailed)
	}
	return d, nil
}
