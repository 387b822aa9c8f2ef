package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stroyrent/rentbot/internal/domain/rental"
)

// RentalRepository implements rental.Repository.
type RentalRepository struct {
	pool *pgxpool.Pool
}

func NewRentalRepository(pool *pgxpool.Pool) *RentalRepository {
	return &RentalRepository{pool: pool}
}

const intervalColumns = `id, request_id, equipment_id, start_date, end_date, price_at_time, worked_hours, created_at`

func (r *RentalRepository) Create(ctx context.Context, iv *rental.Interval) error {
	var workedHours *float64
	if iv.Worked != nil {
		h := iv.Worked.Hours()
		workedHours = &h
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO rental_intervals (request_id, equipment_id, start_date, end_date, price_at_time, worked_hours, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, iv.RequestID, iv.EquipmentID, iv.Start, iv.End, iv.PriceAtTime, workedHours, iv.CreatedAt).Scan(&iv.ID)
}

func (r *RentalRepository) GetByRequestID(ctx context.Context, requestID int64) (*rental.Interval, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+intervalColumns+`
		FROM rental_intervals WHERE request_id=$1
	`, requestID)
	return scanInterval(row)
}

func (r *RentalRepository) ListOverlapping(ctx context.Context, equipmentID int64, windowStart, windowEnd time.Time) ([]*rental.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+intervalColumns+`
		FROM rental_intervals
		WHERE equipment_id=$1 AND start_date <= $3 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date
	`, equipmentID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var intervals []*rental.Interval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

func scanInterval(row pgx.Row) (*rental.Interval, error) {
	var iv rental.Interval
	var workedHours *float64
	err := row.Scan(&iv.ID, &iv.RequestID, &iv.EquipmentID, &iv.Start, &iv.End, &iv.PriceAtTime, &workedHours, &iv.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if workedHours != nil {
		d := time.Duration(*workedHours * float64(time.Hour))
		iv.Worked = &d
	}
	return &iv, nil
}
