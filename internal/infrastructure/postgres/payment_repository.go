package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/payment"
)

// PaymentRepository implements payment.Repository. The unique index on
// external_charge_id makes RecordCharge the idempotency point for the whole
// payment path.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const transactionColumns = `id, request_id, requester_id, external_charge_id, amount, status, created_at`

func (r *PaymentRepository) RecordCharge(ctx context.Context, t *payment.Transaction) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO payment_transactions (request_id, requester_id, external_charge_id, amount, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (external_charge_id) DO NOTHING
		RETURNING id
	`, t.RequestID, t.RequesterID, t.ExternalChargeID, t.Amount, t.Status, t.CreatedAt).Scan(&t.ID)
	if err == pgx.ErrNoRows {
		// another confirmation already recorded this charge
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// PAID is reachable only from AWAITING_PAYMENT
	_, err = tx.Exec(ctx, `
		UPDATE booking_requests SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3
	`, t.RequestID, booking.StatusPaid, booking.StatusAwaitingPayment)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PaymentRepository) GetByExternalID(ctx context.Context, externalChargeID string) (*payment.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions WHERE external_charge_id=$1
	`, externalChargeID)
	return scanTransaction(row)
}

func (r *PaymentRepository) GetByRequestID(ctx context.Context, requestID int64) (*payment.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions WHERE request_id=$1
		ORDER BY created_at DESC LIMIT 1
	`, requestID)
	return scanTransaction(row)
}

func (r *PaymentRepository) ListByRequester(ctx context.Context, requesterID int64, limit, offset int) ([]*payment.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE requester_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, requesterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []*payment.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (*payment.Transaction, error) {
	var t payment.Transaction
	err := row.Scan(&t.ID, &t.RequestID, &t.RequesterID, &t.ExternalChargeID, &t.Amount, &t.Status, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
