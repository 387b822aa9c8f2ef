package dialog

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/stroyrent/rentbot/internal/application/availability"
	bookingapp "github.com/stroyrent/rentbot/internal/application/booking"
	paymentapp "github.com/stroyrent/rentbot/internal/application/payment"
	"github.com/stroyrent/rentbot/internal/domain/company"
	"github.com/stroyrent/rentbot/internal/domain/equipment"
	"github.com/stroyrent/rentbot/internal/domain/fault"
	"github.com/stroyrent/rentbot/internal/domain/session"
)

// Session data keys for the in-flight booking draft.
const (
	keyCategory    = "draft:category"
	keyEquipment   = "draft:equipment"
	keyEquipmentID = "draft:equipment_id"
	keyDate        = "draft:date"
	keyPhone       = "draft:phone"
	keyAddress     = "draft:address"
	keyRequest     = "pay:request"
	keyNote        = "note"
)

const (
	genericErrorText = "Что-то пошло не так, попробуйте ещё раз."
	unknownInputText = "Не понимаю. Выберите действие на клавиатуре."
)

// handler mutates the session snapshot for one (state, action kind) pair.
// Returning a non-nil Prompt overrides the default rendering of the
// resulting state.
type handler func(ctx context.Context, sess *session.Session, a Action) (*Prompt, error)

// Machine drives the conversation graph. Transitions run on a clone of the
// stored session: the clone is persisted only when the handler finishes
// without a transient failure, so an aborted transition leaves the session
// exactly as it was.
type Machine struct {
	sessions session.Store
	catalog  equipment.Repository
	contacts company.Repository
	avail    *availability.Service
	bookings *bookingapp.Service
	payments *paymentapp.Service
	logger   zerolog.Logger
	now      func() time.Time

	table map[session.State]map[ActionKind]handler
}

func NewMachine(
	sessions session.Store,
	catalog equipment.Repository,
	contacts company.Repository,
	avail *availability.Service,
	bookings *bookingapp.Service,
	payments *paymentapp.Service,
	logger zerolog.Logger,
) *Machine {
	m := &Machine{
		sessions: sessions,
		catalog:  catalog,
		contacts: contacts,
		avail:    avail,
		bookings: bookings,
		payments: payments,
		logger:   logger.With().Str("service", "dialog").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	m.table = m.dispatchTable()
	return m
}

// dispatchTable maps (state, action kind) to its handler. Every state lists
// its transitions explicitly; an absent entry means the input is ignored
// with a re-prompt.
func (m *Machine) dispatchTable() map[session.State]map[ActionKind]handler {
	back := map[ActionKind]handler{ActionBack: m.goBack}
	withBack := func(extra map[ActionKind]handler) map[ActionKind]handler {
		t := map[ActionKind]handler{ActionBack: m.goBack}
		for k, v := range extra {
			t[k] = v
		}
		return t
	}
	return map[session.State]map[ActionKind]handler{
		session.StateRoot: {
			ActionSelect: m.selectRootMenu,
		},
		session.StateCategoryList: withBack(map[ActionKind]handler{
			ActionSelect: m.selectCategory,
		}),
		session.StateEquipmentList: withBack(map[ActionKind]handler{
			ActionSelect: m.selectEquipment,
		}),
		session.StateEquipmentDetail: withBack(map[ActionKind]handler{
			ActionSelect: m.selectEquipmentAction,
		}),
		session.StateRentConfirm: withBack(map[ActionKind]handler{
			ActionSelect: m.confirmRent,
		}),
		session.StateDateSelect: withBack(map[ActionKind]handler{
			ActionSelect: m.selectDate,
		}),
		session.StateDateConfirm: withBack(map[ActionKind]handler{
			ActionSelect: m.confirmDate,
		}),
		session.StatePhoneEntry: withBack(map[ActionKind]handler{
			ActionText: m.enterPhone,
		}),
		session.StatePhoneConfirm: withBack(map[ActionKind]handler{
			ActionSelect: m.confirmPhone,
		}),
		session.StateAddressEntry: withBack(map[ActionKind]handler{
			ActionText: m.enterAddress,
		}),
		session.StateAddressConfirm: withBack(map[ActionKind]handler{
			ActionSelect: m.confirmAddress,
		}),
		session.StateFinalReview: withBack(map[ActionKind]handler{
			ActionSelect: m.finalReview,
		}),
		session.StateSubmitted: {
			ActionSelect: m.leaveSubmitted,
		},
		session.StateCancelMenu: withBack(map[ActionKind]handler{
			ActionSelect: m.selectCancelMode,
		}),
		session.StateCancelByDate: withBack(map[ActionKind]handler{
			ActionSelect: m.cancelPicked,
		}),
		session.StateCancelByEquipment: withBack(map[ActionKind]handler{
			ActionSelect: m.cancelPicked,
		}),
		session.StateMyRequests:      back,
		session.StatePendingPayments: withBack(map[ActionKind]handler{
			ActionSelect: m.selectPendingPayment,
		}),
		session.StatePaymentDetail: withBack(map[ActionKind]handler{
			ActionSelect: m.selectPaymentAction,
		}),
		session.StateContacts: back,
	}
}

// Handle runs one transition. The returned error is non-nil only for a
// stale conversation reference, which the transport resolves through
// Recover; every other failure is translated here into a prompt so nothing
// escapes to the transport uncaught.
func (m *Machine) Handle(ctx context.Context, conversationID int64, a Action) (p *Prompt, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).
				Int64("conversation_id", conversationID).
				Str("action", string(a.Kind)).
				Msg("transition handler panicked")
			p = &Prompt{State: session.StateRoot, Text: rootText, Note: genericErrorText, Controls: rootControls()}
			err = nil
		}
	}()

	sess, err := m.sessions.Get(ctx, conversationID)
	if err != nil {
		m.logger.Error().Err(err).Int64("conversation_id", conversationID).Msg("session load failed")
		return &Prompt{State: session.StateRoot, Text: genericErrorText}, nil
	}
	if sess == nil {
		if a.Kind != ActionStart && a.Kind != ActionReset {
			return nil, &fault.StaleSessionError{Ref: strconv.FormatInt(conversationID, 10)}
		}
		sess = session.New(conversationID)
	}

	work := sess.Clone()
	work.Delete(keyNote)

	var custom *Prompt
	switch a.Kind {
	case ActionStart, ActionReset:
		work.ResetNav()
	default:
		h := m.table[work.State][a.Kind]
		if h == nil {
			work.Set(keyNote, unknownInputText)
			break
		}
		custom, err = h(ctx, work, a)
		if err != nil {
			m.logger.Warn().Err(err).
				Int64("conversation_id", conversationID).
				Str("state", string(sess.State)).
				Msg("transition aborted")
			// the snapshot is discarded; the stored session keeps its
			// prior state so the user can retry the same action
			prompt := m.render(ctx, sess)
			prompt.Note = userMessage(err)
			return prompt, nil
		}
	}

	if err := m.sessions.Save(ctx, work); err != nil {
		m.logger.Error().Err(err).Int64("conversation_id", conversationID).Msg("session save failed")
		prompt := m.render(ctx, sess)
		prompt.Note = genericErrorText
		return prompt, nil
	}
	if custom != nil {
		return custom, nil
	}
	prompt := m.render(ctx, work)
	if note := work.Get(keyNote); note != "" && prompt.Note == "" {
		prompt.Note = note
	}
	return prompt, nil
}

func (m *Machine) goBack(_ context.Context, sess *session.Session, _ Action) (*Prompt, error) {
	sess.Pop()
	return nil, nil
}

// userMessage translates a failed transition into user-visible text.
func userMessage(err error) string {
	switch {
	case fault.IsValidation(err):
		return "Проверьте введённые данные и попробуйте снова."
	case fault.IsNotFound(err):
		return "Запись не найдена. Возможно, она была удалена."
	case fault.IsConflict(err):
		return "Действие уже выполнено."
	default:
		return genericErrorText
	}
}
