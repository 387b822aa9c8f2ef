package dialog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stroyrent/rentbot/internal/application/availability"
	bookingapp "github.com/stroyrent/rentbot/internal/application/booking"
	"github.com/stroyrent/rentbot/internal/domain/fault"
	"github.com/stroyrent/rentbot/internal/domain/session"
)

const dayFormat = "2006-01-02"

func (m *Machine) selectRootMenu(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	switch a.Value {
	case "rent":
		sess.Push(session.StateCategoryList)
	case "my":
		sess.Push(session.StateMyRequests)
	case "cancel":
		sess.Push(session.StateCancelMenu)
	case "payments":
		sess.Push(session.StatePendingPayments)
	case "contacts":
		sess.Push(session.StateContacts)
	default:
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) selectCategory(ctx context.Context, sess *session.Session, a Action) (*Prompt, error) {
	if _, err := strconv.ParseInt(a.Value, 10, 64); err != nil {
		sess.Set(keyNote, unknownInputText)
		return nil, nil
	}
	sess.Set(keyCategory, a.Value)
	sess.Push(session.StateEquipmentList)
	return nil, nil
}

func (m *Machine) selectEquipment(ctx context.Context, sess *session.Session, a Action) (*Prompt, error) {
	eq, err := m.catalog.GetByName(ctx, a.Value)
	if err != nil {
		return nil, &fault.TransientError{Op: "load equipment", Err: err}
	}
	if eq == nil {
		return nil, &fault.NotFoundError{Kind: "equipment", Key: a.Value}
	}
	sess.Set(keyEquipment, eq.Name)
	sess.Set(keyEquipmentID, strconv.FormatInt(eq.ID, 10))
	sess.Push(session.StateEquipmentDetail)
	return nil, nil
}

func (m *Machine) selectEquipmentAction(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	if a.Value == "rent" {
		sess.Push(session.StateRentConfirm)
	} else {
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) confirmRent(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	switch a.Value {
	case "yes":
		sess.Push(session.StateDateSelect)
	case "no":
		sess.Pop()
	default:
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) selectDate(ctx context.Context, sess *session.Session, a Action) (*Prompt, error) {
	today := availability.Day(m.now())
	var day time.Time
	switch a.Value {
	case "today":
		day = today
	case "tomorrow":
		day = today.AddDate(0, 0, 1)
	default:
		var err error
		day, err = time.Parse(dayFormat, a.Value)
		if err != nil {
			sess.Set(keyNote, "Выберите дату на календаре или кнопками.")
			return nil, nil
		}
	}
	if day.Before(today) {
		sess.Set(keyNote, "Эта дата уже прошла, выберите другую.")
		return nil, nil
	}
	equipmentID, _ := strconv.ParseInt(sess.Get(keyEquipmentID), 10, 64)
	free, err := m.avail.MonthFree(ctx, sess, equipmentID, day.Year(), day.Month())
	if err != nil {
		return nil, err
	}
	if !containsDay(free, day) {
		sess.Set(keyNote, "Эта дата занята, выберите другую.")
		return nil, nil
	}
	sess.Set(keyDate, day.Format(dayFormat))
	sess.Push(session.StateDateConfirm)
	return nil, nil
}

func (m *Machine) confirmDate(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	switch a.Value {
	case "yes":
		sess.Push(session.StatePhoneEntry)
	case "no":
		sess.Pop()
	default:
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) enterPhone(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	phone, err := NormalizePhone(a.Value)
	if err != nil {
		sess.Set(keyNote, "Неверный формат номера. Пример: +79991234567 или 89991234567.")
		return nil, nil
	}
	sess.Set(keyPhone, phone)
	sess.Push(session.StatePhoneConfirm)
	return nil, nil
}

func (m *Machine) confirmPhone(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	switch a.Value {
	case "yes":
		sess.Push(session.StateAddressEntry)
	case "no":
		sess.Pop()
	default:
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) enterAddress(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	addr, err := ValidateAddress(a.Value)
	if err != nil {
		sess.Set(keyNote, "Укажите адрес в формате: город, улица, дом.")
		return nil, nil
	}
	sess.Set(keyAddress, addr)
	sess.Push(session.StateAddressConfirm)
	return nil, nil
}

func (m *Machine) confirmAddress(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	switch a.Value {
	case "yes":
		sess.Push(session.StateFinalReview)
	case "no":
		sess.Pop()
	default:
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) finalReview(ctx context.Context, sess *session.Session, a Action) (*Prompt, error) {
	switch a.Value {
	case "submit":
		date, err := time.Parse(dayFormat, sess.Get(keyDate))
		if err != nil {
			return nil, &fault.ValidationError{Field: "date", Reason: "draft has no valid date"}
		}
		req, err := m.bookings.Submit(ctx, bookingapp.Draft{
			RequesterID:   a.From.ID,
			EquipmentName: sess.Get(keyEquipment),
			Date:          date,
			Phone:         sess.Get(keyPhone),
			Address:       sess.Get(keyAddress),
			FirstName:     a.From.FirstName,
			Username:      a.From.Username,
		})
		if err != nil {
			return nil, err
		}
		equipmentID, _ := strconv.ParseInt(sess.Get(keyEquipmentID), 10, 64)
		availability.InvalidateEquipment(sess, equipmentID)
		clearDraft(sess)
		sess.Stack = nil
		sess.State = session.StateSubmitted
		sess.Set(keyNote, fmt.Sprintf("Заявка #%d принята ✅", req.ID))
	case "edit":
		sess.Pop()
	default:
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) leaveSubmitted(_ context.Context, sess *session.Session, _ Action) (*Prompt, error) {
	sess.ResetNav()
	return nil, nil
}

func (m *Machine) selectCancelMode(ctx context.Context, sess *session.Session, a Action) (*Prompt, error) {
	switch a.Value {
	case "by_date":
		sess.Push(session.StateCancelByDate)
	case "by_equipment":
		sess.Push(session.StateCancelByEquipment)
	case "all":
		count, err := m.bookings.CancelAll(ctx, a.From.ID)
		if err != nil {
			return nil, err
		}
		sess.Set(keyNote, fmt.Sprintf("Отменено заявок: %d", count))
	default:
		sess.Set(keyNote, unknownInputText)
	}
	return nil, nil
}

func (m *Machine) cancelPicked(ctx context.Context, sess *session.Session, a Action) (*Prompt, error) {
	requestID, err := strconv.ParseInt(a.Value, 10, 64)
	if err != nil {
		sess.Set(keyNote, unknownInputText)
		return nil, nil
	}
	if err := m.bookings.CancelOne(ctx, requestID); err != nil {
		return nil, err
	}
	sess.Pop()
	sess.Set(keyNote, fmt.Sprintf("Заявка #%d отменена", requestID))
	return nil, nil
}

func (m *Machine) selectPendingPayment(_ context.Context, sess *session.Session, a Action) (*Prompt, error) {
	if _, err := strconv.ParseInt(a.Value, 10, 64); err != nil {
		sess.Set(keyNote, unknownInputText)
		return nil, nil
	}
	sess.Set(keyRequest, a.Value)
	sess.Push(session.StatePaymentDetail)
	return nil, nil
}

func (m *Machine) selectPaymentAction(ctx context.Context, sess *session.Session, a Action) (*Prompt, error) {
	if a.Value != "pay" {
		sess.Set(keyNote, unknownInputText)
		return nil, nil
	}
	requestID, err := strconv.ParseInt(sess.Get(keyRequest), 10, 64)
	if err != nil {
		return nil, &fault.NotFoundError{Kind: "booking request", Key: sess.Get(keyRequest)}
	}
	inv, err := m.payments.CreateInvoice(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &Prompt{
		State:   session.StatePaymentDetail,
		Text:    fmt.Sprintf("Счёт по заявке #%d на %s выставлен.", requestID, formatMoney(inv.Amount)),
		Invoice: inv,
	}, nil
}

func clearDraft(sess *session.Session) {
	for _, k := range []string{keyCategory, keyEquipment, keyEquipmentID, keyDate, keyPhone, keyAddress} {
		sess.Delete(k)
	}
}

func containsDay(days []time.Time, day time.Time) bool {
	for _, d := range days {
		if d.Equal(day) {
			return true
		}
	}
	return false
}

func formatMoney(minor int64) string {
	return fmt.Sprintf("%d.%02d ₽", minor/100, minor%100)
}
