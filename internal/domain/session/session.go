package session

import "time"

// State names a point in the conversation graph, one per screen.
type State string

const (
	StateRoot              State = "ROOT"
	StateCategoryList      State = "CATEGORY_LIST"
	StateEquipmentList     State = "EQUIPMENT_LIST"
	StateEquipmentDetail   State = "EQUIPMENT_DETAIL"
	StateRentConfirm       State = "RENT_CONFIRM"
	StateDateSelect        State = "DATE_SELECT"
	StateDateConfirm       State = "DATE_CONFIRM"
	StatePhoneEntry        State = "PHONE_ENTRY"
	StatePhoneConfirm      State = "PHONE_CONFIRM"
	StateAddressEntry      State = "ADDRESS_ENTRY"
	StateAddressConfirm    State = "ADDRESS_CONFIRM"
	StateFinalReview       State = "FINAL_REVIEW"
	StateSubmitted         State = "SUBMITTED"
	StateCancelMenu        State = "CANCEL_MENU"
	StateCancelByDate      State = "CANCEL_BY_DATE"
	StateCancelByEquipment State = "CANCEL_BY_EQUIPMENT"
	StateMyRequests        State = "MY_REQUESTS"
	StatePendingPayments   State = "PENDING_PAYMENTS"
	StatePaymentDetail     State = "PAYMENT_DETAIL"
	StateContacts          State = "CONTACTS"
)

// Session is the ephemeral per-conversation context: current state, a
// navigation stack for "back", and a scoped key/value cache holding the
// in-flight booking draft. Loss of a session degrades to a restart at the
// root state, never to a failure.
type Session struct {
	ConversationID int64
	State          State
	Stack          []State
	Data           map[string]string
	UpdatedAt      time.Time
}

// New returns a fresh session positioned at the root state.
func New(conversationID int64) *Session {
	return &Session{
		ConversationID: conversationID,
		State:          StateRoot,
		Data:           make(map[string]string),
		UpdatedAt:      time.Now().UTC(),
	}
}

// Push advances to next, remembering the current state for "back".
func (s *Session) Push(next State) {
	s.Stack = append(s.Stack, s.State)
	s.State = next
}

// Pop returns to the previous state, or the root when the stack is empty.
func (s *Session) Pop() State {
	if len(s.Stack) == 0 {
		s.State = StateRoot
		return s.State
	}
	s.State = s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return s.State
}

// ResetNav clears the navigation stack and scoped data and jumps to root.
func (s *Session) ResetNav() {
	s.Stack = nil
	s.State = StateRoot
	s.Data = make(map[string]string)
}

// Get returns a scoped data value.
func (s *Session) Get(key string) string {
	return s.Data[key]
}

// Set stores a scoped data value.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// Delete removes a scoped data value.
func (s *Session) Delete(key string) {
	delete(s.Data, key)
}

// Clone returns an independent copy so a transition handler can mutate a
// snapshot and discard it on failure.
func (s *Session) Clone() *Session {
	c := &Session{
		ConversationID: s.ConversationID,
		State:          s.State,
		Stack:          append([]State(nil), s.Stack...),
		Data:           make(map[string]string, len(s.Data)),
		UpdatedAt:      s.UpdatedAt,
	}
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return c
}
