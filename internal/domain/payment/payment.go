package payment

import "time"

// Status represents payment transaction status.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Transaction records a confirmed charge. The table is append-only and
// ExternalChargeID carries a storage-level uniqueness constraint: a retried
// confirmation notification can never create a second row, which is the
// system's idempotency guarantee.
type Transaction struct {
	ID               int64     `json:"id"`
	RequestID        int64     `json:"requestId"`
	RequesterID      int64     `json:"requesterId"`
	ExternalChargeID string    `json:"externalChargeId"`
	// Amount is in minor currency units.
	Amount    int64     `json:"amount"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
