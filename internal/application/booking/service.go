package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/equipment"
	"github.com/stroyrent/rentbot/internal/domain/fault"
	"github.com/stroyrent/rentbot/internal/domain/rental"
)

// Draft is an in-flight booking accumulated by the dialog before submission.
type Draft struct {
	RequesterID   int64
	EquipmentName string
	Date          time.Time
	Phone         string
	Address       string
	FirstName     string
	Username      string
}

// Notifier delivers out-of-band messages. The operator channel receives new
// submissions; requesters receive status updates.
type Notifier interface {
	NotifyOperator(ctx context.Context, text string) error
	NotifyRequester(ctx context.Context, conversationID int64, text string) error
}

// Service manages the booking request lifecycle.
type Service struct {
	requests  booking.Repository
	equipment equipment.Repository
	notifier  Notifier
	logger    zerolog.Logger
}

func NewService(requests booking.Repository, equipmentRepo equipment.Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		requests:  requests,
		equipment: equipmentRepo,
		notifier:  notifier,
		logger:    logger.With().Str("service", "booking").Logger(),
	}
}

// Submit persists the draft as a NEW request together with its rental
// interval, copying the equipment's current daily rate onto the interval,
// and notifies the operator channel. The two rows are written in one
// transaction.
func (s *Service) Submit(ctx context.Context, d Draft) (*booking.Request, error) {
	eq, err := s.equipment.GetByName(ctx, d.EquipmentName)
	if err != nil {
		return nil, &fault.TransientError{Op: "load equipment", Err: err}
	}
	if eq == nil {
		return nil, &fault.NotFoundError{Kind: "equipment", Key: d.EquipmentName}
	}

	now := time.Now().UTC()
	req := &booking.Request{
		RequesterID:   d.RequesterID,
		EquipmentName: eq.Name,
		Date:          d.Date,
		Phone:         d.Phone,
		Address:       d.Address,
		FirstName:     d.FirstName,
		Username:      d.Username,
		Status:        booking.StatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	iv := &rental.Interval{
		EquipmentID: eq.ID,
		Start:       d.Date,
		PriceAtTime: eq.PricePerDay,
		CreatedAt:   now,
	}
	if err := s.requests.CreateWithInterval(ctx, req, iv); err != nil {
		return nil, &fault.TransientError{Op: "persist booking", Err: err}
	}

	if err := s.notifier.NotifyOperator(ctx, formatOperatorNote(req)); err != nil {
		// the booking is already durable; a lost notification is logged, not fatal
		s.logger.Error().Err(err).Int64("request_id", req.ID).Msg("operator notification failed")
	}

	s.logger.Info().Int64("request_id", req.ID).Int64("requester_id", req.RequesterID).
		Str("equipment", req.EquipmentName).Msg("booking submitted")
	return req, nil
}

// CancelOne transitions a single NEW request to DELETED. Cancelling an
// already-withdrawn request is a no-op.
func (s *Service) CancelOne(ctx context.Context, requestID int64) error {
	rows, err := s.requests.UpdateStatus(ctx, requestID, booking.StatusNew, booking.StatusDeleted)
	if err != nil {
		return &fault.TransientError{Op: "cancel booking", Err: err}
	}
	if rows > 0 {
		s.logger.Info().Int64("request_id", requestID).Msg("booking cancelled")
		return nil
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return &fault.TransientError{Op: "load booking", Err: err}
	}
	if req == nil {
		return &fault.NotFoundError{Kind: "booking request", Key: fmt.Sprintf("%d", requestID)}
	}
	// already cancelled or otherwise past NEW: idempotent no-op
	return nil
}

// CancelAll bulk-transitions every NEW request of the requester to CANCELLED
// and returns the number affected. A second call affects zero rows.
func (s *Service) CancelAll(ctx context.Context, requesterID int64) (int64, error) {
	rows, err := s.requests.UpdateStatusAll(ctx, requesterID, booking.StatusNew, booking.StatusCancelled)
	if err != nil {
		return 0, &fault.TransientError{Op: "cancel all bookings", Err: err}
	}
	if rows > 0 {
		s.logger.Info().Int64("requester_id", requesterID).Int64("count", rows).Msg("bookings bulk-cancelled")
	}
	return rows, nil
}

// Get loads a single request.
func (s *Service) Get(ctx context.Context, requestID int64) (*booking.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, &fault.TransientError{Op: "load booking", Err: err}
	}
	if req == nil {
		return nil, &fault.NotFoundError{Kind: "booking request", Key: fmt.Sprintf("%d", requestID)}
	}
	return req, nil
}

// ListByRequester returns the requester's bookings in the given statuses,
// used by the "my requests" and pending-payment browsing screens.
func (s *Service) ListByRequester(ctx context.Context, requesterID int64, statuses ...booking.Status) ([]*booking.Request, error) {
	reqs, err := s.requests.ListByRequester(ctx, requesterID, statuses)
	if err != nil {
		return nil, &fault.TransientError{Op: "list bookings", Err: err}
	}
	return reqs, nil
}

func formatOperatorNote(req *booking.Request) string {
	user := req.FirstName
	if req.Username != "" {
		user += " @" + req.Username
	}
	return fmt.Sprintf(
		"Новая заявка #%d\nТехника: %s\nДата: %s\nТелефон: %s\nАдрес: %s\nКлиент: %s",
		req.ID, req.EquipmentName, req.Date.Format("02.01.2006"), req.Phone, req.Address, user,
	)
}
