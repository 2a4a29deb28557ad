package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/app"
	"github.com/pedalpost/rental-api/internal/clock"
	"github.com/pedalpost/rental-api/internal/domain"
	"github.com/pedalpost/rental-api/internal/payment"
	"github.com/pedalpost/rental-api/internal/schedule"
	"github.com/pedalpost/rental-api/internal/storage/postgres"
	"github.com/pedalpost/rental-api/internal/testutil"
)

func TestReservationLifecycle_HTTPIntegration(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"transaction_id":"tx-int-1"}`))
	}))
	defer gateway.Close()

	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	loc := time.UTC
	builder := schedule.NewBuilder(loc, schedule.ShopHours{
		Open:  domain.TimeOfDay{Hour: 9, Minute: 30},
		Close: domain.TimeOfDay{Hour: 18},
	})
	clk := clock.NewFixed(time.Date(2025, 6, 7, 9, 0, 0, 0, loc))

	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(
		reservationRepo,
		payment.NewClient(gateway.URL),
		postgres.NewWaiverRepository(pool),
		nil,
		builder,
		clk,
	)
	router := NewRouter(
		app.NewAvailabilityService(postgres.NewAvailabilityRepository(pool), builder, clk),
		NewReservationHandler(reservationSvc),
		NewAdminHandler(app.NewInventoryService(postgres.NewInventoryRepository(pool)), reservationSvc),
	)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	unitID := testutil.InsertUnit(t, ctx, pool, "City Bike", "city", "M", decimal.RequireFromString("50.00"),
		map[domain.PolicyCode]decimal.Decimal{
			domain.PolicyTwoHour: decimal.RequireFromString("12.50"),
		})

	do := func(method, path string, body []byte) *httptest.ResponseRecorder {
		t.Helper()
		var req *http.Request
		if body == nil {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, bytes.NewReader(body))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/availability?policy=2h&date=2025-06-07&start=10:00", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var avail availabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if len(avail.Groups) != 1 || avail.Groups[0].Available != 1 {
		t.Fatalf("expected one open unit, got %+v", avail.Groups)
	}

	createBody := []byte(`{"unit_ids":["` + unitID + `"],"date":"2025-06-07","policy":"2h","start_time":"10:00"}`)
	rec = do(http.MethodPost, "/reservations", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created reservationResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if created.Status != string(domain.StatusHold) {
		t.Fatalf("expected hold, got %s", created.Status)
	}
	if created.TotalAmount != "12.50" || created.TotalDeposit != "50.00" {
		t.Fatalf("unexpected totals %s / %s", created.TotalAmount, created.TotalDeposit)
	}

	confirmBody := []byte(`{"payment_token":"tok-1"}`)
	rec = do(http.MethodPost, "/reservations/"+created.ID+"/confirm", confirmBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("confirm without waiver: expected 409, got %d", rec.Code)
	}
	var errResp struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Code != "waiver_required" {
		t.Fatalf("expected waiver_required, got %s", errResp.Code)
	}

	testutil.InsertWaiver(t, ctx, pool, created.ID, "Ada Lovelace")

	rec = do(http.MethodPost, "/reservations/"+created.ID+"/confirm", confirmBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var confirmed reservationResponse
	if err := json.NewDecoder(rec.Body).Decode(&confirmed); err != nil {
		t.Fatalf("decode confirm: %v", err)
	}
	if confirmed.Status != string(domain.StatusPaid) {
		t.Fatalf("expected paid, got %s", confirmed.Status)
	}

	var paymentRef string
	if err := pool.QueryRow(ctx, `SELECT payment_ref FROM reservations WHERE id = $1`, created.ID).Scan(&paymentRef); err != nil {
		t.Fatalf("query payment_ref: %v", err)
	}
	if paymentRef != "tx-int-1" {
		t.Fatalf("expected payment_ref tx-int-1, got %s", paymentRef)
	}

	rec = do(http.MethodPost, "/reservations/"+created.ID+"/checkout", []byte(`{"actor":"desk"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var action itemActionResponse
	if err := json.NewDecoder(rec.Body).Decode(&action); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	if action.Status != string(domain.StatusActive) || action.AffectedCount != 1 {
		t.Fatalf("unexpected checkout result %+v", action)
	}

	rec = do(http.MethodPost, "/reservations/"+created.ID+"/checkin", []byte(`{"actor":"desk"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("checkin: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&action); err != nil {
		t.Fatalf("decode checkin: %v", err)
	}
	if action.Status != string(domain.StatusCompleted) {
		t.Fatalf("expected completed, got %s", action.Status)
	}
	if action.AllReturned == nil || !*action.AllReturned {
		t.Fatalf("expected all_returned true, got %v", action.AllReturned)
	}

	// A completed booking still owns its slot; only cancel or void frees it.
	rec = do(http.MethodPost, "/reservations", createBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlapping create: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Code != "slot_conflict" {
		t.Fatalf("expected slot_conflict, got %s", errResp.Code)
	}
}

func TestCreateHold_ConcurrentRequests_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	loc := time.UTC
	builder := schedule.NewBuilder(loc, schedule.ShopHours{
		Open:  domain.TimeOfDay{Hour: 9, Minute: 30},
		Close: domain.TimeOfDay{Hour: 18},
	})
	clk := clock.NewFixed(time.Date(2025, 6, 7, 9, 0, 0, 0, loc))

	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(
		reservationRepo,
		payment.NewClient("http://gateway.invalid"),
		postgres.NewWaiverRepository(pool),
		nil,
		builder,
		clk,
	)
	router := NewRouter(
		app.NewAvailabilityService(postgres.NewAvailabilityRepository(pool), builder, clk),
		NewReservationHandler(reservationSvc),
		NewAdminHandler(app.NewInventoryService(postgres.NewInventoryRepository(pool)), reservationSvc),
	)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	unitID := testutil.InsertUnit(t, ctx, pool, "City Bike", "city", "M", decimal.RequireFromString("50.00"),
		map[domain.PolicyCode]decimal.Decimal{
			domain.PolicyTwoHour: decimal.RequireFromString("12.50"),
		})

	const workers = 8
	body := `{"unit_ids":["` + unitID + `"],"date":"2025-06-07","policy":"2h","start_time":"10:00"}`

	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewReader([]byte(body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	var createdCount, conflictCount int
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			createdCount++
		case http.StatusConflict:
			conflictCount++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if createdCount != 1 {
		t.Fatalf("expected exactly one winner, got %d", createdCount)
	}
	if conflictCount != workers-1 {
		t.Fatalf("expected %d conflicts, got %d", workers-1, conflictCount)
	}

	var itemCount int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservation_items WHERE unit_id = $1 AND starts_at < ends_at`, unitID,
	).Scan(&itemCount); err != nil {
		t.Fatalf("query item count: %v", err)
	}
	if itemCount != 1 {
		t.Fatalf("expected 1 live item, got %d", itemCount)
	}
}
