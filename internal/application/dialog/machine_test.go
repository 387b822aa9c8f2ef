package dialog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stroyrent/rentbot/internal/application/availability"
	bookingapp "github.com/stroyrent/rentbot/internal/application/booking"
	paymentapp "github.com/stroyrent/rentbot/internal/application/payment"
	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/company"
	"github.com/stroyrent/rentbot/internal/domain/equipment"
	"github.com/stroyrent/rentbot/internal/domain/fault"
	"github.com/stroyrent/rentbot/internal/domain/payment"
	"github.com/stroyrent/rentbot/internal/domain/rental"
	"github.com/stroyrent/rentbot/internal/domain/session"
	"github.com/stroyrent/rentbot/internal/infrastructure/memstore"
)

// MockCatalog is a mock implementation of equipment.Repository
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetByID(ctx context.Context, id int64) (*equipment.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*equipment.Equipment), args.Error(1)
}

func (m *MockCatalog) GetByName(ctx context.Context, name string) (*equipment.Equipment, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*equipment.Equipment), args.Error(1)
}

func (m *MockCatalog) ListByCategory(ctx context.Context, categoryID int64) ([]*equipment.Equipment, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*equipment.Equipment), args.Error(1)
}

func (m *MockCatalog) ListCategories(ctx context.Context) ([]*equipment.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*equipment.Category), args.Error(1)
}

// MockRentals is a mock implementation of rental.Repository
type MockRentals struct {
	mock.Mock
}

func (m *MockRentals) Create(ctx context.Context, iv *rental.Interval) error {
	args := m.Called(ctx, iv)
	return args.Error(0)
}

func (m *MockRentals) GetByRequestID(ctx context.Context, requestID int64) (*rental.Interval, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.Interval), args.Error(1)
}

func (m *MockRentals) ListOverlapping(ctx context.Context, equipmentID int64, windowStart, windowEnd time.Time) ([]*rental.Interval, error) {
	args := m.Called(ctx, equipmentID, windowStart, windowEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rental.Interval), args.Error(1)
}

// MockRequests is a mock implementation of booking.Repository
type MockRequests struct {
	mock.Mock
}

func (m *MockRequests) CreateWithInterval(ctx context.Context, req *booking.Request, iv *rental.Interval) error {
	args := m.Called(ctx, req, iv)
	return args.Error(0)
}

func (m *MockRequests) GetByID(ctx context.Context, id int64) (*booking.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Request), args.Error(1)
}

func (m *MockRequests) List(ctx context.Context, filter booking.ListFilter) ([]*booking.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Request), args.Error(1)
}

func (m *MockRequests) ListByRequester(ctx context.Context, requesterID int64, statuses []booking.Status) ([]*booking.Request, error) {
	args := m.Called(ctx, requesterID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Request), args.Error(1)
}

func (m *MockRequests) UpdateStatus(ctx context.Context, id int64, from, to booking.Status) (int64, error) {
	args := m.Called(ctx, id, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRequests) UpdateStatusAll(ctx context.Context, requesterID int64, from, to booking.Status) (int64, error) {
	args := m.Called(ctx, requesterID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransactions is a mock implementation of payment.Repository
type MockTransactions struct {
	mock.Mock
}

func (m *MockTransactions) RecordCharge(ctx context.Context, tx *payment.Transaction) (bool, error) {
	args := m.Called(ctx, tx)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactions) GetByExternalID(ctx context.Context, externalChargeID string) (*payment.Transaction, error) {
	args := m.Called(ctx, externalChargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactions) GetByRequestID(ctx context.Context, requestID int64) (*payment.Transaction, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactions) ListByRequester(ctx context.Context, requesterID int64, limit, offset int) ([]*payment.Transaction, error) {
	args := m.Called(ctx, requesterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Transaction), args.Error(1)
}

// MockContacts is a mock implementation of company.Repository
type MockContacts struct {
	mock.Mock
}

func (m *MockContacts) GetActive(ctx context.Context) (*company.Contact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Contact), args.Error(1)
}

// MockNotifier is a mock implementation of bookingapp.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyOperator(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *MockNotifier) NotifyRequester(ctx context.Context, conversationID int64, text string) error {
	args := m.Called(ctx, conversationID, text)
	return args.Error(0)
}

type testEnv struct {
	machine  *Machine
	sessions session.Store
	catalog  *MockCatalog
	rentals  *MockRentals
	requests *MockRequests
	txs      *MockTransactions
	contacts *MockContacts
	notifier *MockNotifier
}

func newTestEnv() *testEnv {
	e := &testEnv{
		sessions: memstore.NewSessionStore(),
		catalog:  new(MockCatalog),
		rentals:  new(MockRentals),
		requests: new(MockRequests),
		txs:      new(MockTransactions),
		contacts: new(MockContacts),
		notifier: new(MockNotifier),
	}
	log := zerolog.Nop()
	avail := availability.NewService(e.catalog, e.rentals, log)
	bookings := bookingapp.NewService(e.requests, e.catalog, e.notifier, log)
	payments := paymentapp.NewService(e.requests, e.rentals, e.txs, e.notifier, "RUB", log)
	e.machine = NewMachine(e.sessions, e.catalog, e.contacts, avail, bookings, payments, log)
	return e
}

const convID int64 = 9001

func start(t *testing.T, e *testEnv) {
	t.Helper()
	p, err := e.machine.Handle(context.Background(), convID, Action{Kind: ActionStart})
	require.NoError(t, err)
	require.Equal(t, session.StateRoot, p.State)
}

func press(t *testing.T, e *testEnv, kind ActionKind, value string) *Prompt {
	t.Helper()
	p, err := e.machine.Handle(context.Background(), convID, Action{
		Kind:  kind,
		Value: value,
		From:  From{ID: convID, FirstName: "Иван", Username: "ivan"},
	})
	require.NoError(t, err)
	return p
}

func storedState(t *testing.T, e *testEnv) *session.Session {
	t.Helper()
	sess, err := e.sessions.Get(context.Background(), convID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	return sess
}

func TestMachine_StartShowsRootMenu(t *testing.T) {
	e := newTestEnv()
	p, err := e.machine.Handle(context.Background(), convID, Action{Kind: ActionStart})
	require.NoError(t, err)
	assert.Equal(t, session.StateRoot, p.State)
	assert.NotEmpty(t, p.Controls)
	assert.Equal(t, session.StateRoot, storedState(t, e).State)
}

func TestMachine_MissingSessionIsStale(t *testing.T) {
	e := newTestEnv()
	_, err := e.machine.Handle(context.Background(), convID, Action{Kind: ActionSelect, Value: "rent"})
	assert.True(t, fault.IsStaleSession(err))
}

func TestMachine_BackFromCategoryList(t *testing.T) {
	e := newTestEnv()
	e.catalog.On("ListCategories", mock.Anything).Return([]*equipment.Category{{ID: 1, Name: "Экскаваторы"}}, nil)

	start(t, e)
	p := press(t, e, ActionSelect, "rent")
	assert.Equal(t, session.StateCategoryList, p.State)

	p = press(t, e, ActionBack, "")
	assert.Equal(t, session.StateRoot, p.State)
	assert.Empty(t, storedState(t, e).Stack)
}

func TestMachine_FullBookingFlow(t *testing.T) {
	e := newTestEnv()
	eq := &equipment.Equipment{ID: 1, Name: "Экскаватор-200", PricePerDay: 500000, CategoryID: 1}
	e.catalog.On("ListCategories", mock.Anything).Return([]*equipment.Category{{ID: 1, Name: "Экскаваторы"}}, nil)
	e.catalog.On("ListByCategory", mock.Anything, int64(1)).Return([]*equipment.Equipment{eq}, nil)
	e.catalog.On("GetByName", mock.Anything, "Экскаватор-200").Return(eq, nil)
	e.catalog.On("GetByID", mock.Anything, int64(1)).Return(eq, nil)
	e.rentals.On("ListOverlapping", mock.Anything, int64(1), mock.Anything, mock.Anything).Return([]*rental.Interval{}, nil)
	e.requests.On("CreateWithInterval", mock.Anything, mock.AnythingOfType("*booking.Request"), mock.AnythingOfType("*rental.Interval")).Return(nil)
	e.notifier.On("NotifyOperator", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	start(t, e)
	press(t, e, ActionSelect, "rent")
	press(t, e, ActionSelect, "1")
	press(t, e, ActionSelect, "Экскаватор-200")
	press(t, e, ActionSelect, "rent")
	press(t, e, ActionSelect, "yes")
	p := press(t, e, ActionSelect, "today")
	assert.Equal(t, session.StateDateConfirm, p.State)

	press(t, e, ActionSelect, "yes")
	p = press(t, e, ActionText, "89930057019")
	assert.Equal(t, session.StatePhoneConfirm, p.State)
	assert.Contains(t, p.Text, "+79930057019")

	press(t, e, ActionSelect, "yes")
	press(t, e, ActionText, "Москва, ул. Ленина, д. 5")
	press(t, e, ActionSelect, "yes")
	p = press(t, e, ActionSelect, "submit")
	assert.Equal(t, session.StateSubmitted, p.State)

	sess := storedState(t, e)
	assert.Equal(t, session.StateSubmitted, sess.State)
	assert.Empty(t, sess.Stack)
	assert.Empty(t, sess.Get(keyPhone), "draft must be cleared after submission")

	req := e.requests.Calls[0].Arguments.Get(1).(*booking.Request)
	assert.Equal(t, "Экскаватор-200", req.EquipmentName)
	assert.Equal(t, "+79930057019", req.Phone)
	assert.Equal(t, booking.StatusNew, req.Status)
	e.notifier.AssertExpectations(t)
}

func TestMachine_InvalidPhoneStaysPut(t *testing.T) {
	e := newTestEnv()
	start(t, e)
	// drop the session straight into phone entry
	_, err := e.sessions.Update(context.Background(), convID, func(s *session.Session) {
		s.Push(session.StatePhoneEntry)
	})
	require.NoError(t, err)

	p := press(t, e, ActionText, "123")
	assert.Equal(t, session.StatePhoneEntry, p.State)
	assert.NotEmpty(t, p.Note)

	sess := storedState(t, e)
	assert.Equal(t, session.StatePhoneEntry, sess.State)
	assert.NotEmpty(t, sess.Get(keyNote))
}

func TestMachine_BusyDateRePrompts(t *testing.T) {
	e := newTestEnv()
	eq := &equipment.Equipment{ID: 1, Name: "Экскаватор-200", PricePerDay: 500000}
	e.catalog.On("GetByName", mock.Anything, "Экскаватор-200").Return(eq, nil)
	e.catalog.On("GetByID", mock.Anything, int64(1)).Return(eq, nil)
	// everything from today onward is occupied
	e.rentals.On("ListOverlapping", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]*rental.Interval{{EquipmentID: 1, Start: time.Now().UTC().AddDate(0, -1, 0)}}, nil)

	start(t, e)
	_, err := e.sessions.Update(context.Background(), convID, func(s *session.Session) {
		s.Set(keyEquipment, "Экскаватор-200")
		s.Set(keyEquipmentID, "1")
		s.Push(session.StateDateSelect)
	})
	require.NoError(t, err)

	p := press(t, e, ActionSelect, "today")
	assert.Equal(t, session.StateDateSelect, p.State)
	assert.NotEmpty(t, p.Note)
	assert.Equal(t, session.StateDateSelect, storedState(t, e).State)
}

func TestMachine_TransientFailureKeepsPriorState(t *testing.T) {
	e := newTestEnv()
	e.catalog.On("ListCategories", mock.Anything).Return([]*equipment.Category{{ID: 1, Name: "Экскаваторы"}}, nil)
	e.catalog.On("ListByCategory", mock.Anything, int64(1)).Return([]*equipment.Equipment{{ID: 1, Name: "Экскаватор-200"}}, nil)
	e.catalog.On("GetByName", mock.Anything, "Экскаватор-200").Return(nil, errors.New("connection refused"))

	start(t, e)
	press(t, e, ActionSelect, "rent")
	press(t, e, ActionSelect, "1")

	p := press(t, e, ActionSelect, "Экскаватор-200")
	assert.Equal(t, session.StateEquipmentList, p.State)
	assert.NotEmpty(t, p.Note)
	assert.Equal(t, session.StateEquipmentList, storedState(t, e).State)
}

func TestMachine_PanicIsContained(t *testing.T) {
	e := newTestEnv()
	start(t, e)
	// no ListCategories expectation set: the mock panics inside the render
	p, err := e.machine.Handle(context.Background(), convID, Action{Kind: ActionSelect, Value: "rent"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotEmpty(t, p.Note)
}

func TestMachine_CancelAllReportsCount(t *testing.T) {
	e := newTestEnv()
	e.requests.On("UpdateStatusAll", mock.Anything, convID, booking.StatusNew, booking.StatusCancelled).
		Return(int64(2), nil).Once()
	e.requests.On("UpdateStatusAll", mock.Anything, convID, booking.StatusNew, booking.StatusCancelled).
		Return(int64(0), nil).Once()

	start(t, e)
	press(t, e, ActionSelect, "cancel")
	p := press(t, e, ActionSelect, "all")
	assert.Contains(t, p.Note, "2")

	p = press(t, e, ActionSelect, "all")
	assert.Contains(t, p.Note, "0")
}

func TestMachine_PayIssuesInvoice(t *testing.T) {
	e := newTestEnv()
	req := &booking.Request{
		ID: 42, RequesterID: convID, EquipmentName: "Экскаватор-200",
		Date: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), Status: booking.StatusNew,
	}
	e.requests.On("ListByRequester", mock.Anything, convID, mock.Anything).Return([]*booking.Request{req}, nil)
	e.requests.On("GetByID", mock.Anything, int64(42)).Return(req, nil)
	e.rentals.On("GetByRequestID", mock.Anything, int64(42)).Return(&rental.Interval{
		RequestID: 42, Start: req.Date, PriceAtTime: 500000,
	}, nil)
	e.txs.On("GetByRequestID", mock.Anything, int64(42)).Return(nil, nil)
	e.requests.On("UpdateStatus", mock.Anything, int64(42), booking.StatusNew, booking.StatusAwaitingPayment).Return(int64(1), nil)

	start(t, e)
	press(t, e, ActionSelect, "payments")
	press(t, e, ActionSelect, "42")
	p := press(t, e, ActionSelect, "pay")
	require.NotNil(t, p.Invoice)
	assert.Equal(t, int64(42), p.Invoice.RequestID)
	assert.Equal(t, "rentbot:req:42", p.Invoice.Payload)
}
