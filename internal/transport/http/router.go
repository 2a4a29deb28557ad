package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every API route onto a gorilla router. Callers wrap the
// result in CORS and RequestLogger before serving.
func NewRouter(availability AvailabilityFinder, reservations *ReservationHandler, admin *AdminHandler) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = NotFoundHandler()

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.Handle("/availability", HandleFindAvailability(availability)).Methods(http.MethodGet)

	r.HandleFunc("/reservations", reservations.Create).Methods(http.MethodPost)
	r.HandleFunc("/reservations/{id}", reservations.Get).Methods(http.MethodGet)
	r.HandleFunc("/reservations/{id}/confirm", reservations.Confirm).Methods(http.MethodPost)
	r.HandleFunc("/reservations/{id}/checkout", reservations.CheckOut).Methods(http.MethodPost)
	r.HandleFunc("/reservations/{id}/checkin", reservations.CheckIn).Methods(http.MethodPost)
	r.HandleFunc("/reservations/{id}/extend", reservations.Extend).Methods(http.MethodPost)
	r.HandleFunc("/reservations/{id}/cancel", reservations.Cancel).Methods(http.MethodPost)
	r.HandleFunc("/reservations/{id}/void", reservations.Void).Methods(http.MethodPost)
	r.HandleFunc("/reservations/{id}/complete", reservations.Complete).Methods(http.MethodPost)

	r.HandleFunc("/admin/units", admin.CreateUnit).Methods(http.MethodPost)
	r.HandleFunc("/admin/units", admin.ListUnits).Methods(http.MethodGet)
	r.HandleFunc("/admin/units/{id}/status", admin.UpdateUnitStatus).Methods(http.MethodPatch)
	r.HandleFunc("/admin/maintenance/expire-holds", admin.ExpireHolds).Methods(http.MethodPost)

	return r
}
