package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/session"
)

const rootText = "Главное меню. Что вас интересует?"

func rootControls() [][]Control {
	return [][]Control{
		row(Control{ID: "rent", Label: "🚜 Арендовать технику"}),
		row(Control{ID: "my", Label: "📋 Мои заявки"}, Control{ID: "cancel", Label: "❌ Отменить заявку"}),
		row(Control{ID: "payments", Label: "💳 Оплата"}, Control{ID: "contacts", Label: "📞 Контакты"}),
	}
}

// render builds the screen for the session's current state. Storage failures
// during rendering degrade to a generic message; the session itself is
// already saved by the time render runs.
func (m *Machine) render(ctx context.Context, sess *session.Session) *Prompt {
	p, err := m.renderState(ctx, sess)
	if err != nil {
		m.logger.Error().Err(err).
			Int64("conversation_id", sess.ConversationID).
			Str("state", string(sess.State)).
			Msg("render failed")
		return &Prompt{State: sess.State, Text: genericErrorText, Controls: [][]Control{backRow()}}
	}
	return p
}

func (m *Machine) renderState(ctx context.Context, sess *session.Session) (*Prompt, error) {
	switch sess.State {
	case session.StateRoot:
		return &Prompt{State: sess.State, Text: rootText, Controls: rootControls()}, nil

	case session.StateCategoryList:
		cats, err := m.catalog.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		var controls [][]Control
		for _, c := range cats {
			controls = append(controls, row(Control{ID: strconv.FormatInt(c.ID, 10), Label: c.Name}))
		}
		controls = append(controls, backRow())
		return &Prompt{State: sess.State, Text: "Выберите категорию техники:", Controls: controls}, nil

	case session.StateEquipmentList:
		categoryID, _ := strconv.ParseInt(sess.Get(keyCategory), 10, 64)
		items, err := m.catalog.ListByCategory(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		var controls [][]Control
		for _, eq := range items {
			label := fmt.Sprintf("%s — %s/сутки", eq.Name, formatMoney(eq.PricePerDay))
			controls = append(controls, row(Control{ID: eq.Name, Label: label}))
		}
		controls = append(controls, backRow())
		return &Prompt{State: sess.State, Text: "Доступная техника:", Controls: controls}, nil

	case session.StateEquipmentDetail:
		eq, err := m.catalog.GetByName(ctx, sess.Get(keyEquipment))
		if err != nil {
			return nil, err
		}
		text := genericErrorText
		if eq != nil {
			var b strings.Builder
			fmt.Fprintf(&b, "%s\n", eq.Name)
			if eq.Description != "" {
				fmt.Fprintf(&b, "%s\n", eq.Description)
			}
			fmt.Fprintf(&b, "Стоимость: %s в сутки", formatMoney(eq.PricePerDay))
			text = b.String()
		}
		return &Prompt{State: sess.State, Text: text, Controls: [][]Control{
			row(Control{ID: "rent", Label: "Арендовать"}),
			backRow(),
		}}, nil

	case session.StateRentConfirm:
		return yesNoPrompt(sess, fmt.Sprintf("Оформить аренду «%s»?", sess.Get(keyEquipment))), nil

	case session.StateDateSelect:
		return &Prompt{
			State:    sess.State,
			Text:     "На какую дату нужна техника?",
			Calendar: true,
			Controls: [][]Control{
				row(Control{ID: "today", Label: "Сегодня"}, Control{ID: "tomorrow", Label: "Завтра"}),
				backRow(),
			},
		}, nil

	case session.StateDateConfirm:
		return yesNoPrompt(sess, fmt.Sprintf("Дата аренды: %s. Верно?", sess.Get(keyDate))), nil

	case session.StatePhoneEntry:
		return &Prompt{State: sess.State, Text: "Введите контактный номер телефона:", Controls: [][]Control{backRow()}}, nil

	case session.StatePhoneConfirm:
		return yesNoPrompt(sess, fmt.Sprintf("Номер телефона: %s. Верно?", sess.Get(keyPhone))), nil

	case session.StateAddressEntry:
		return &Prompt{State: sess.State, Text: "Введите адрес доставки (город, улица, дом):", Controls: [][]Control{backRow()}}, nil

	case session.StateAddressConfirm:
		return yesNoPrompt(sess, fmt.Sprintf("Адрес доставки: %s. Верно?", sess.Get(keyAddress))), nil

	case session.StateFinalReview:
		var b strings.Builder
		b.WriteString("Проверьте заявку:\n")
		fmt.Fprintf(&b, "Техника: %s\n", sess.Get(keyEquipment))
		fmt.Fprintf(&b, "Дата: %s\n", sess.Get(keyDate))
		fmt.Fprintf(&b, "Телефон: %s\n", sess.Get(keyPhone))
		fmt.Fprintf(&b, "Адрес: %s", sess.Get(keyAddress))
		return &Prompt{State: sess.State, Text: b.String(), Controls: [][]Control{
			row(Control{ID: "submit", Label: "✅ Отправить"}),
			row(Control{ID: "edit", Label: "✏️ Изменить"}),
		}}, nil

	case session.StateSubmitted:
		return &Prompt{State: sess.State, Text: "Заявка отправлена. Оператор свяжется с вами.", Controls: [][]Control{
			row(Control{ID: "menu", Label: "В главное меню"}),
		}}, nil

	case session.StateCancelMenu:
		return &Prompt{State: sess.State, Text: "Какие заявки отменить?", Controls: [][]Control{
			row(Control{ID: "by_date", Label: "По дате"}),
			row(Control{ID: "by_equipment", Label: "По технике"}),
			row(Control{ID: "all", Label: "Отменить все"}),
			backRow(),
		}}, nil

	case session.StateCancelByDate, session.StateCancelByEquipment:
		requests, err := m.bookings.ListByRequester(ctx, sess.ConversationID, booking.StatusNew)
		if err != nil {
			return nil, err
		}
		if len(requests) == 0 {
			return &Prompt{State: sess.State, Text: "Активных заявок нет.", Controls: [][]Control{backRow()}}, nil
		}
		var controls [][]Control
		for _, r := range requests {
			var label string
			if sess.State == session.StateCancelByDate {
				label = fmt.Sprintf("#%d — %s", r.ID, r.Date.Format("02.01.2006"))
			} else {
				label = fmt.Sprintf("#%d — %s", r.ID, r.EquipmentName)
			}
			controls = append(controls, row(Control{ID: strconv.FormatInt(r.ID, 10), Label: label}))
		}
		controls = append(controls, backRow())
		return &Prompt{State: sess.State, Text: "Выберите заявку для отмены:", Controls: controls}, nil

	case session.StateMyRequests:
		requests, err := m.bookings.ListByRequester(ctx, sess.ConversationID,
			booking.StatusNew, booking.StatusAwaitingPayment, booking.StatusPaid,
			booking.StatusInProgress, booking.StatusCompleted)
		if err != nil {
			return nil, err
		}
		if len(requests) == 0 {
			return &Prompt{State: sess.State, Text: "У вас пока нет заявок.", Controls: [][]Control{backRow()}}, nil
		}
		var b strings.Builder
		b.WriteString("Ваши заявки:\n")
		for _, r := range requests {
			fmt.Fprintf(&b, "#%d %s — %s, %s\n", r.ID, r.EquipmentName, r.Date.Format("02.01.2006"), statusLabel(r.Status))
		}
		return &Prompt{State: sess.State, Text: b.String(), Controls: [][]Control{backRow()}}, nil

	case session.StatePendingPayments:
		requests, err := m.bookings.ListByRequester(ctx, sess.ConversationID,
			booking.StatusNew, booking.StatusAwaitingPayment)
		if err != nil {
			return nil, err
		}
		if len(requests) == 0 {
			return &Prompt{State: sess.State, Text: "Заявок, ожидающих оплаты, нет.", Controls: [][]Control{backRow()}}, nil
		}
		var controls [][]Control
		for _, r := range requests {
			label := fmt.Sprintf("#%d — %s, %s", r.ID, r.EquipmentName, r.Date.Format("02.01.2006"))
			controls = append(controls, row(Control{ID: strconv.FormatInt(r.ID, 10), Label: label}))
		}
		controls = append(controls, backRow())
		return &Prompt{State: sess.State, Text: "Выберите заявку для оплаты:", Controls: controls}, nil

	case session.StatePaymentDetail:
		requestID, _ := strconv.ParseInt(sess.Get(keyRequest), 10, 64)
		req, err := m.bookings.Get(ctx, requestID)
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf("Заявка #%d: %s, %s (%s)", req.ID, req.EquipmentName,
			req.Date.Format("02.01.2006"), statusLabel(req.Status))
		return &Prompt{State: sess.State, Text: text, Controls: [][]Control{
			row(Control{ID: "pay", Label: "💳 Оплатить"}),
			backRow(),
		}}, nil

	case session.StateContacts:
		contact, err := m.contacts.GetActive(ctx)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return &Prompt{State: sess.State, Text: "Контакты временно недоступны.", Controls: [][]Control{backRow()}}, nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", contact.CompanyName)
		if contact.Description != "" {
			fmt.Fprintf(&b, "%s\n", contact.Description)
		}
		fmt.Fprintf(&b, "Телефон: %s\n", contact.Phone)
		fmt.Fprintf(&b, "Email: %s\n", contact.Email)
		if contact.Telegram != "" {
			fmt.Fprintf(&b, "Telegram: %s\n", contact.Telegram)
		}
		if contact.WorkHours != "" {
			fmt.Fprintf(&b, "Режим работы: %s", contact.WorkHours)
		}
		return &Prompt{State: sess.State, Text: b.String(), Controls: [][]Control{backRow()}}, nil
	}

	return &Prompt{State: session.StateRoot, Text: rootText, Controls: rootControls()}, nil
}

func yesNoPrompt(sess *session.Session, text string) *Prompt {
	return &Prompt{State: sess.State, Text: text, Controls: [][]Control{
		row(Control{ID: "yes", Label: "✅ Да"}, Control{ID: "no", Label: "↩️ Нет"}),
	}}
}

func statusLabel(s booking.Status) string {
	switch s {
	case booking.StatusNew:
		return "новая"
	case booking.StatusAwaitingPayment:
		return "ожидает оплаты"
	case booking.StatusPaid:
		return "оплачена"
	case booking.StatusInProgress:
		return "в работе"
	case booking.StatusCompleted:
		return "завершена"
	case booking.StatusCancelled:
		return "отменена"
	case booking.StatusDeleted:
		return "удалена"
	}
	return string(s)
}
