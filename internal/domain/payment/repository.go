package payment

import "context"

// Repository defines payment transaction persistence.
type Repository interface {
	// RecordCharge inserts the transaction and transitions the associated
	// booking request to PAID in a single transaction. When a transaction
	// with the same external charge identifier already exists nothing is
	// written and false is returned.
	RecordCharge(ctx context.Context, tx *Transaction) (bool, error)
	GetByExternalID(ctx context.Context, externalChargeID string) (*Transaction, error)
	GetByRequestID(ctx context.Context, requestID int64) (*Transaction, error)
	ListByRequester(ctx context.Context, requesterID int64, limit, offset int) ([]*Transaction, error)
}
