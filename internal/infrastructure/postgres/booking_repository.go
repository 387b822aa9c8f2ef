package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/rental"
)

// BookingRepository implements booking.Repository.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `id, requester_id, equipment_name, request_date, phone, address, first_name, username, status, created_at, updated_at`

// CreateWithInterval inserts the request and its rental interval in one
// transaction; either both rows land or neither does.
func (r *BookingRepository) CreateWithInterval(ctx context.Context, req *booking.Request, iv *rental.Interval) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO booking_requests (requester_id, equipment_name, request_date, phone, address, first_name, username, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, req.RequesterID, req.EquipmentName, req.Date, req.Phone, req.Address, req.FirstName, nullable(req.Username), req.Status, req.CreatedAt, req.UpdatedAt).Scan(&req.ID)
	if err != nil {
		return err
	}

	iv.RequestID = req.ID
	var workedHours *float64
	if iv.Worked != nil {
		h := iv.Worked.Hours()
		workedHours = &h
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO rental_intervals (request_id, equipment_id, start_date, end_date, price_at_time, worked_hours, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, iv.RequestID, iv.EquipmentID, iv.Start, iv.End, iv.PriceAtTime, workedHours, iv.CreatedAt).Scan(&iv.ID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*booking.Request, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM booking_requests WHERE id=$1
	`, id)
	return scanBooking(row)
}

func (r *BookingRepository) List(ctx context.Context, filter booking.ListFilter) ([]*booking.Request, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM booking_requests`
	args := []interface{}{}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		query += " WHERE requester_id=$" + itoa(len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += addWhere(query) + " status=$" + itoa(len(args))
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID int64, statuses []booking.Status) ([]*booking.Request, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM booking_requests
		WHERE requester_id=$1 AND status = ANY($2)
		ORDER BY request_date, id
	`, requesterID, values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from, to booking.Status) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE booking_requests SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
	`, id, from, to)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *BookingRepository) UpdateStatusAll(ctx context.Context, requesterID int64, from, to booking.Status) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE booking_requests SET status=$3, updated_at=now()
		WHERE requester_id=$1 AND status=$2
	`, requesterID, from, to)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func scanBooking(row pgx.Row) (*booking.Request, error) {
	var b booking.Request
	var username *string
	err := row.Scan(&b.ID, &b.RequesterID, &b.EquipmentName, &b.Date, &b.Phone, &b.Address, &b.FirstName, &username, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if username != nil {
		b.Username = *username
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*booking.Request, error) {
	var requests []*booking.Request
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, b)
	}
	return requests, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func addWhere(query string) string {
	if strings.Contains(query, "WHERE") {
		return " AND"
	}
	return " WHERE"
}
