package rental

import (
	"context"
	"time"
)

// Repository defines rental interval persistence.
type Repository interface {
	Create(ctx context.Context, iv *Interval) error
	GetByRequestID(ctx context.Context, requestID int64) (*Interval, error)
	// ListOverlapping returns intervals for the equipment that overlap the
	// window: start <= windowEnd and (end is null or end >= windowStart).
	ListOverlapping(ctx context.Context, equipmentID int64, windowStart, windowEnd time.Time) ([]*Interval, error)
}
