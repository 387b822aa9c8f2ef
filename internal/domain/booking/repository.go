package booking

import (
	"context"

	"github.com/stroyrent/rentbot/internal/domain/rental"
)

// ListFilter narrows request listings.
type ListFilter struct {
	RequesterID *int64
	Status      *Status
	Limit       int
	Offset      int
}

// Repository defines booking request persistence.
type Repository interface {
	// CreateWithInterval persists the request together with its rental
	// interval in a single transaction; neither row exists on failure.
	CreateWithInterval(ctx context.Context, req *Request, iv *rental.Interval) error
	GetByID(ctx context.Context, id int64) (*Request, error)
	List(ctx context.Context, filter ListFilter) ([]*Request, error)
	ListByRequester(ctx context.Context, requesterID int64, statuses []Status) ([]*Request, error)
	// UpdateStatus transitions a single request from an expected status and
	// reports the number of rows affected. Zero rows means the request was
	// missing or not in the expected status.
	UpdateStatus(ctx context.Context, id int64, from, to Status) (int64, error)
	// UpdateStatusAll bulk-transitions every request of a requester that is
	// in the expected status.
	UpdateStatusAll(ctx context.Context, requesterID int64, from, to Status) (int64, error)
}
