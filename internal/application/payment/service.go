package payment

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appBooking "github.com/stroyrent/rentbot/internal/application/booking"
	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/fault"
	"github.com/stroyrent/rentbot/internal/domain/payment"
	"github.com/stroyrent/rentbot/internal/domain/rental"
)

const payloadPrefix = "rentbot:req:"

// Invoice describes an external charge request for a booking awaiting
// payment. Amount is in minor currency units.
type Invoice struct {
	RequestID   int64
	Payload     string
	Title       string
	Description string
	Amount      int64
	Currency    string
}

// Service reconciles invoices and confirmed charges.
type Service struct {
	requests booking.Repository
	rentals  rental.Repository
	txs      payment.Repository
	notifier appBooking.Notifier
	currency string
	logger   zerolog.Logger
}

func NewService(
	requests booking.Repository,
	rentals rental.Repository,
	txs payment.Repository,
	notifier appBooking.Notifier,
	currency string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		requests: requests,
		rentals:  rentals,
		txs:      txs,
		notifier: notifier,
		currency: currency,
		logger:   logger.With().Str("service", "payment").Logger(),
	}
}

// CreateInvoice validates the request and builds the charge to send. It
// fails rather than issue a zero or negative invoice, and re-checks for an
// existing transaction immediately before returning so a confirmed payment
// racing this call cannot produce a second invoice.
func (s *Service) CreateInvoice(ctx context.Context, requestID int64) (*Invoice, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, &fault.TransientError{Op: "load booking", Err: err}
	}
	if req == nil {
		return nil, &fault.NotFoundError{Kind: "booking request", Key: fmt.Sprintf("%d", requestID)}
	}
	// re-issuing for a request already awaiting payment replaces the
	// previous invoice; any other status must pass the transition table
	wasNew := req.Status == booking.StatusNew
	if req.Status != booking.StatusAwaitingPayment {
		if err := req.AwaitPayment(); err != nil {
			return nil, &fault.ConflictError{Op: "create invoice", Reason: fmt.Sprintf("request is %s", req.Status)}
		}
	}

	iv, err := s.rentals.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, &fault.TransientError{Op: "load rental interval", Err: err}
	}
	if iv == nil {
		return nil, &fault.NotFoundError{Kind: "rental interval", Key: fmt.Sprintf("request %d", requestID)}
	}

	amount := InvoiceAmount(iv)
	if amount <= 0 {
		return nil, &fault.ValidationError{Field: "amount", Reason: "computed invoice amount is not positive"}
	}

	// the durable transaction row, not any in-memory flag, is the guard
	// against double billing
	existing, err := s.txs.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, &fault.TransientError{Op: "load payment transaction", Err: err}
	}
	if existing != nil {
		return nil, &fault.ConflictError{Op: "create invoice", Reason: "request already paid"}
	}

	if wasNew {
		if _, err := s.requests.UpdateStatus(ctx, requestID, booking.StatusNew, booking.StatusAwaitingPayment); err != nil {
			return nil, &fault.TransientError{Op: "mark awaiting payment", Err: err}
		}
	}

	return &Invoice{
		RequestID:   requestID,
		Payload:     Payload(requestID),
		Title:       fmt.Sprintf("Аренда: %s", req.EquipmentName),
		Description: fmt.Sprintf("Заявка #%d от %s", req.ID, req.Date.Format("02.01.2006")),
		Amount:      amount,
		Currency:    s.currency,
	}, nil
}

// Precheckout validates a charge payload before the provider captures the
// money: the payload must reference a request issued by this workflow that
// is still awaiting payment.
func (s *Service) Precheckout(ctx context.Context, payload string, amount int64) error {
	requestID, err := ParsePayload(payload)
	if err != nil {
		return err
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return &fault.TransientError{Op: "load booking", Err: err}
	}
	if req == nil {
		return &fault.NotFoundError{Kind: "booking request", Key: fmt.Sprintf("%d", requestID)}
	}
	if amount <= 0 {
		return &fault.ValidationError{Field: "amount", Reason: "charge amount must be positive"}
	}
	existing, err := s.txs.GetByRequestID(ctx, requestID)
	if err != nil {
		return &fault.TransientError{Op: "load payment transaction", Err: err}
	}
	if existing != nil {
		return &fault.ConflictError{Op: "precheckout", Reason: "request already paid"}
	}
	return nil
}

// ConfirmCharge records a completed charge exactly once, keyed by the
// external charge identifier. A retried confirmation returns the existing
// transaction. On first confirmation the booking transitions to PAID in the
// same storage transaction and the requester is notified.
func (s *Service) ConfirmCharge(ctx context.Context, externalChargeID, payload string, requesterID, amount int64) (*payment.Transaction, error) {
	requestID, err := ParsePayload(payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.txs.GetByExternalID(ctx, externalChargeID)
	if err != nil {
		return nil, &fault.TransientError{Op: "load payment transaction", Err: err}
	}
	if existing != nil {
		return existing, nil
	}

	tx := &payment.Transaction{
		RequestID:        requestID,
		RequesterID:      requesterID,
		ExternalChargeID: externalChargeID,
		Amount:           amount,
		Status:           payment.StatusSuccess,
		CreatedAt:        time.Now().UTC(),
	}
	created, err := s.txs.RecordCharge(ctx, tx)
	if err != nil {
		return nil, &fault.TransientError{Op: "record charge", Err: err}
	}
	if !created {
		// a concurrent confirmation won the insert; the unique constraint
		// on the external charge id is the source of truth
		return s.txs.GetByExternalID(ctx, externalChargeID)
	}

	if err := s.notifier.NotifyRequester(ctx, requesterID, fmt.Sprintf("Оплата по заявке #%d получена ✅", requestID)); err != nil {
		s.logger.Error().Err(err).Int64("request_id", requestID).Msg("payment notification failed")
	}
	s.logger.Info().Int64("request_id", requestID).Str("charge_id", externalChargeID).
		Int64("amount", amount).Msg("charge recorded")
	return tx, nil
}

// InvoiceAmount computes the charge in minor units: price-at-time per day
// multiplied by the billed duration, rounded down. The billed duration is
// the operator-recorded worked time when present, otherwise the interval's
// inclusive day span, otherwise a single day for an open-ended interval.
func InvoiceAmount(iv *rental.Interval) int64 {
	days := 1.0
	switch {
	case iv.Worked != nil:
		days = iv.Worked.Hours() / 24
	case iv.End != nil:
		days = iv.End.Sub(iv.Start).Hours()/24 + 1
	}
	return int64(math.Floor(float64(iv.PriceAtTime) * days))
}

// Payload builds the invoice payload for a request.
func Payload(requestID int64) string {
	return payloadPrefix + strconv.FormatInt(requestID, 10)
}

// ParsePayload extracts the request id from an invoice payload, rejecting
// payloads this workflow did not issue.
func ParsePayload(payload string) (int64, error) {
	raw, ok := strings.CutPrefix(payload, payloadPrefix)
	if !ok {
		return 0, &fault.ValidationError{Field: "payload", Reason: "unknown invoice payload"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &fault.ValidationError{Field: "payload", Reason: "malformed invoice payload"}
	}
	return id, nil
}
