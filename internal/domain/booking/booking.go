package booking

import (
	"errors"
	"time"
)

// Status represents booking request status.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusPaid            Status = "PAID"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
	StatusDeleted         Status = "DELETED"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

// Request represents a booking request. Requests are never physically
// deleted; withdrawal is a transition to DELETED or CANCELLED so history is
// preserved.
type Request struct {
	ID            int64     `json:"id"`
	RequesterID   int64     `json:"requesterId"`
	EquipmentName string    `json:"equipmentName"`
	Date          time.Time `json:"date"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	FirstName     string    `json:"firstName"`
	Username      string    `json:"username,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CanTransitionTo validates booking status transition.
func (r *Request) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusNew:             {StatusAwaitingPayment, StatusInProgress, StatusCancelled, StatusDeleted},
		StatusAwaitingPayment: {StatusPaid, StatusCancelled, StatusDeleted},
		StatusInProgress:      {StatusCompleted},
		StatusPaid:            {},
		StatusCompleted:       {},
		StatusCancelled:       {},
		StatusDeleted:         {},
	}
	allowed := transitions[r.Status]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusCompleted, StatusCancelled, StatusDeleted:
		return true
	}
	return false
}

// AwaitPayment moves the request into the payment path when an invoice is
// issued. Withdrawal and fulfilment transitions are applied as conditional
// updates in storage and are validated against the same table.
func (r *Request) AwaitPayment() error {
	if !r.CanTransitionTo(StatusAwaitingPayment) {
		return ErrInvalidTransition
	}
	r.Status = StatusAwaitingPayment
	return nil
}
