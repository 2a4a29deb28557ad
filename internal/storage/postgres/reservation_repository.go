package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pedalpost/rental-api/internal/domain"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) GetUnits(ctx context.Context, ids []string) ([]domain.InventoryUnit, error) {
	const query = `
SELECT id, name, category, size, deposit::text, status
FROM inventory_units
WHERE id = ANY($1::uuid[])
ORDER BY id`

	rows, err := r.query(ctx, query, ids)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("get units: %w", err)
	}
	units, err := scanUnits(rows)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, err
	}
	if err := loadPrices(ctx, r, units); err != nil {
		return nil, err
	}
	return units, nil
}

func (r *ReservationRepository) ReleaseOverlappingCancelled(ctx context.Context, unitIDs []string, iv domain.Interval) error {
	const stmt = `
UPDATE reservation_items ri
SET ends_at = ri.starts_at
FROM reservations res
WHERE res.id = ri.reservation_id
  AND res.status IN ('cancelled', 'voided')
  AND ri.unit_id = ANY($1::uuid[])
  AND ri.starts_at < $3
  AND ri.ends_at > $2`

	_, err := r.exec(ctx, stmt, unitIDs, iv.Start, iv.End)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("release cancelled overlaps: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ConflictingUnitIDs(ctx context.Context, unitIDs []string, iv domain.Interval) ([]string, error) {
	const query = `
SELECT DISTINCT ri.unit_id
FROM reservation_items ri
JOIN reservations res ON res.id = ri.reservation_id
WHERE ri.unit_id = ANY($1::uuid[])
  AND res.status NOT IN ('cancelled', 'voided')
  AND ri.starts_at < $3
  AND ri.ends_at > $2`

	rows, err := r.query(ctx, query, unitIDs, iv.Start, iv.End)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("conflicting units: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conflicting unit: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation, items []domain.ReservationItem) error {
	const headerStmt = `
INSERT INTO reservations (
	id, short_ref, customer_ref, starts_at, ends_at, policy_code, status,
	hold_expires_at, total_amount, total_deposit, source, created_at, updated_at
)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11, $12, $13)`

	_, err := r.exec(ctx, headerStmt,
		res.ID,
		res.ShortRef,
		res.CustomerRef,
		res.Interval.Start,
		res.Interval.End,
		string(res.PolicyCode),
		string(res.Status),
		res.HoldExpiresAt,
		res.TotalAmount.StringFixed(2),
		res.TotalDeposit.StringFixed(2),
		string(res.Source),
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}

	const itemStmt = `
INSERT INTO reservation_items (id, reservation_id, unit_id, starts_at, ends_at, price, deposit)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric)`

	for _, it := range items {
		_, err := r.exec(ctx, itemStmt,
			it.ID,
			it.ReservationID,
			it.UnitID,
			it.Interval.Start,
			it.Interval.End,
			it.Price.StringFixed(2),
			it.Deposit.StringFixed(2),
		)
		if err != nil {
			// The exclusion constraint closes the window between the
			// availability check and this insert.
			if isExclusionViolation(err) {
				return domain.ErrSlotConflict
			}
			return fmt.Errorf("create reservation item: %w", err)
		}
	}
	return nil
}

const reservationColumns = `
id, short_ref, COALESCE(customer_ref, ''), starts_at, ends_at, policy_code,
status, hold_expires_at, COALESCE(payment_ref, ''), total_amount::text,
total_deposit::text, source, created_at, updated_at`

func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return r.scanReservation(r.queryRow(ctx, query, id))
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return r.scanReservation(r.queryRow(ctx, query, id))
}

func (r *ReservationRepository) scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		res                   domain.Reservation
		policy, status, src   string
		amountTxt, depositTxt string
	)
	err := row.Scan(
		&res.ID,
		&res.ShortRef,
		&res.CustomerRef,
		&res.Interval.Start,
		&res.Interval.End,
		&policy,
		&status,
		&res.HoldExpiresAt,
		&res.PaymentRef,
		&amountTxt,
		&depositTxt,
		&src,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	res.PolicyCode = domain.PolicyCode(policy)
	res.Status = domain.Status(status)
	res.Source = domain.Source(src)
	if res.TotalAmount, err = decimal.NewFromString(amountTxt); err != nil {
		return domain.Reservation{}, fmt.Errorf("parse total amount: %w", err)
	}
	if res.TotalDeposit, err = decimal.NewFromString(depositTxt); err != nil {
		return domain.Reservation{}, fmt.Errorf("parse total deposit: %w", err)
	}
	return res, nil
}

const itemColumns = `
id, reservation_id, unit_id, starts_at, ends_at, price::text, deposit::text,
checked_out_at, checked_in_at`

func (r *ReservationRepository) ListItems(ctx context.Context, reservationID string) ([]domain.ReservationItem, error) {
	query := `SELECT ` + itemColumns + ` FROM reservation_items WHERE reservation_id = $1 ORDER BY id`
	rows, err := r.query(ctx, query, reservationID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list items: %w", err)
	}
	return scanItems(rows)
}

func (r *ReservationRepository) LockItems(ctx context.Context, reservationID string, itemIDs []string) ([]domain.ReservationItem, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(itemIDs) == 0 {
		query := `SELECT ` + itemColumns + ` FROM reservation_items WHERE reservation_id = $1 ORDER BY id FOR UPDATE`
		rows, err = r.query(ctx, query, reservationID)
	} else {
		query := `SELECT ` + itemColumns + ` FROM reservation_items WHERE reservation_id = $1 AND id = ANY($2::uuid[]) ORDER BY id FOR UPDATE`
		rows, err = r.query(ctx, query, reservationID, itemIDs)
	}
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("lock items: %w", err)
	}
	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]domain.ReservationItem, error) {
	defer rows.Close()
	var out []domain.ReservationItem
	for rows.Next() {
		var (
			it                   domain.ReservationItem
			priceTxt, depositTxt string
		)
		err := rows.Scan(
			&it.ID,
			&it.ReservationID,
			&it.UnitID,
			&it.Interval.Start,
			&it.Interval.End,
			&priceTxt,
			&depositTxt,
			&it.CheckedOutAt,
			&it.CheckedInAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if it.Price, err = decimal.NewFromString(priceTxt); err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		if it.Deposit, err = decimal.NewFromString(depositTxt); err != nil {
			return nil, fmt.Errorf("parse item deposit: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) MarkCheckedOut(ctx context.Context, itemIDs []string, at time.Time) error {
	const stmt = `UPDATE reservation_items SET checked_out_at = $2 WHERE id = ANY($1::uuid[]) AND checked_out_at IS NULL`
	tag, err := r.exec(ctx, stmt, itemIDs, at)
	if err != nil {
		return fmt.Errorf("mark checked out: %w", err)
	}
	if int(tag.RowsAffected()) != len(itemIDs) {
		return domain.ErrAlreadyCheckedOut
	}
	return nil
}

func (r *ReservationRepository) MarkCheckedIn(ctx context.Context, itemIDs []string, at time.Time) error {
	const stmt = `UPDATE reservation_items SET checked_in_at = $2 WHERE id = ANY($1::uuid[]) AND checked_out_at IS NOT NULL AND checked_in_at IS NULL`
	tag, err := r.exec(ctx, stmt, itemIDs, at)
	if err != nil {
		return fmt.Errorf("mark checked in: %w", err)
	}
	if int(tag.RowsAffected()) != len(itemIDs) {
		return domain.ErrNotCheckedOut
	}
	return nil
}

func (r *ReservationRepository) CountOutstanding(ctx context.Context, reservationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM reservation_items WHERE reservation_id = $1 AND checked_in_at IS NULL`
	var n int
	if err := r.queryRow(ctx, query, reservationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outstanding: %w", err)
	}
	return n, nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error {
	const stmt = `UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) RecordPayment(ctx context.Context, id, paymentRef string, at time.Time) error {
	const stmt = `UPDATE reservations SET payment_ref = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, id, paymentRef, at)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// CollapseItems empties every item interval of a released reservation. Empty
// ranges drop out of the exclusion constraint and the overlap predicates, so
// the slots are free again immediately while the rows remain for audit.
func (r *ReservationRepository) CollapseItems(ctx context.Context, reservationID string) error {
	const stmt = `UPDATE reservation_items SET ends_at = starts_at WHERE reservation_id = $1`
	if _, err := r.exec(ctx, stmt, reservationID); err != nil {
		return fmt.Errorf("collapse items: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ExtendIntervals(ctx context.Context, reservationID string, newEnd, at time.Time) error {
	const itemStmt = `
UPDATE reservation_items
SET ends_at = $2
WHERE reservation_id = $1
  AND checked_in_at IS NULL
  AND starts_at < ends_at`

	if _, err := r.exec(ctx, itemStmt, reservationID, newEnd); err != nil {
		if isExclusionViolation(err) {
			return domain.ErrSlotConflict
		}
		return fmt.Errorf("extend items: %w", err)
	}

	const headerStmt = `UPDATE reservations SET ends_at = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(ctx, headerStmt, reservationID, newEnd, at); err != nil {
		return fmt.Errorf("extend reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ListNotes(ctx context.Context, reservationID string) ([]domain.Note, error) {
	const query = `
SELECT id, reservation_id, author, body, created_at
FROM notes
WHERE reservation_id = $1
ORDER BY created_at, id`

	rows, err := r.query(ctx, query, reservationID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.ReservationID, &n.Author, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) AddNote(ctx context.Context, n domain.Note) error {
	const stmt = `INSERT INTO notes (id, reservation_id, author, body, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.exec(ctx, stmt, n.ID, n.ReservationID, n.Author, n.Body, n.CreatedAt); err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	const expireStmt = `
UPDATE reservations
SET status = 'cancelled', updated_at = $1
WHERE status = 'hold' AND hold_expires_at <= $1
RETURNING id`

	rows, err := r.query(ctx, expireStmt, now)
	if err != nil {
		return 0, fmt.Errorf("expire holds: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expired hold: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	const collapseStmt = `UPDATE reservation_items SET ends_at = starts_at WHERE reservation_id = ANY($1::uuid[])`
	if _, err := r.exec(ctx, collapseStmt, ids); err != nil {
		return 0, fmt.Errorf("collapse expired items: %w", err)
	}
	return len(ids), nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
