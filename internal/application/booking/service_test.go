package booking

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stroyrent/rentbot/internal/domain/booking"
	"github.com/stroyrent/rentbot/internal/domain/equipment"
	"github.com/stroyrent/rentbot/internal/domain/fault"
	"github.com/stroyrent/rentbot/internal/domain/rental"
)

// MockRequestRepository is a mock implementation of booking.Repository
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) CreateWithInterval(ctx context.Context, req *booking.Request, iv *rental.Interval) error {
	args := m.Called(ctx, req, iv)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id int64) (*booking.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Request), args.Error(1)
}

func (m *MockRequestRepository) List(ctx context.Context, filter booking.ListFilter) ([]*booking.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Request), args.Error(1)
}

func (m *MockRequestRepository) ListByRequester(ctx context.Context, requesterID int64, statuses []booking.Status) ([]*booking.Request, error) {
	args := m.Called(ctx, requesterID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Request), args.Error(1)
}

func (m *MockRequestRepository) UpdateStatus(ctx context.Context, id int64, from, to booking.Status) (int64, error) {
	args := m.Called(ctx, id, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRequestRepository) UpdateStatusAll(ctx context.Context, requesterID int64, from, to booking.Status) (int64, error) {
	args := m.Called(ctx, requesterID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// MockEquipmentRepository is a mock implementation of equipment.Repository
type MockEquipmentRepository struct {
	mock.Mock
}

func (m *MockEquipmentRepository) GetByID(ctx context.Context, id int64) (*equipment.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*equipment.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) GetByName(ctx context.Context, name string) (*equipment.Equipment, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*equipment.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) ListByCategory(ctx context.Context, categoryID int64) ([]*equipment.Equipment, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*equipment.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) ListCategories(ctx context.Context) ([]*equipment.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*equipment.Category), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
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

func testDraft() Draft {
	return Draft{
		RequesterID:   100,
		EquipmentName: "Excavator-200",
		Date:          time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		Phone:         "+79930057019",
		Address:       "Москва, Тверская, 1",
		FirstName:     "Ivan",
		Username:      "ivan",
	}
}

func TestSubmitPersistsRequestAndInterval(t *testing.T) {
	requests := new(MockRequestRepository)
	equipRepo := new(MockEquipmentRepository)
	notifier := new(MockNotifier)

	equipRepo.On("GetByName", mock.Anything, "Excavator-200").
		Return(&equipment.Equipment{ID: 7, Name: "Excavator-200", PricePerDay: 500000}, nil)
	requests.On("CreateWithInterval", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*booking.Request).ID = 42
		}).Return(nil)
	notifier.On("NotifyOperator", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(requests, equipRepo, notifier, zerolog.Nop())
	req, err := svc.Submit(context.Background(), testDraft())
	require.NoError(t, err)

	assert.Equal(t, int64(42), req.ID)
	assert.Equal(t, booking.StatusNew, req.Status)
	assert.Equal(t, "Excavator-200", req.EquipmentName)
	assert.Equal(t, "+79930057019", req.Phone)
	assert.Equal(t, "Москва, Тверская, 1", req.Address)

	iv := requests.Calls[0].Arguments.Get(2).(*rental.Interval)
	assert.Equal(t, int64(7), iv.EquipmentID)
	assert.Equal(t, int64(500000), iv.PriceAtTime)
	assert.Equal(t, req.Date, iv.Start)
	assert.Nil(t, iv.End)

	notifier.AssertCalled(t, "NotifyOperator", mock.Anything, mock.Anything)
}

func TestSubmitUnknownEquipment(t *testing.T) {
	requests := new(MockRequestRepository)
	equipRepo := new(MockEquipmentRepository)
	notifier := new(MockNotifier)
	equipRepo.On("GetByName", mock.Anything, "Excavator-200").Return(nil, nil)

	svc := NewService(requests, equipRepo, notifier, zerolog.Nop())
	_, err := svc.Submit(context.Background(), testDraft())
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
	requests.AssertNotCalled(t, "CreateWithInterval", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitSurvivesNotifierFailure(t *testing.T) {
	requests := new(MockRequestRepository)
	equipRepo := new(MockEquipmentRepository)
	notifier := new(MockNotifier)

	equipRepo.On("GetByName", mock.Anything, mock.Anything).
		Return(&equipment.Equipment{ID: 7, Name: "Excavator-200", PricePerDay: 100}, nil)
	requests.On("CreateWithInterval", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyOperator", mock.Anything, mock.Anything).Return(assert.AnError)

	svc := NewService(requests, equipRepo, notifier, zerolog.Nop())
	_, err := svc.Submit(context.Background(), testDraft())
	assert.NoError(t, err)
}

func TestCancelOneIdempotent(t *testing.T) {
	requests := new(MockRequestRepository)
	svc := NewService(requests, new(MockEquipmentRepository), new(MockNotifier), zerolog.Nop())

	// first call deletes
	requests.On("UpdateStatus", mock.Anything, int64(5), booking.StatusNew, booking.StatusDeleted).
		Return(int64(1), nil).Once()
	require.NoError(t, svc.CancelOne(context.Background(), 5))

	// second call hits zero rows with the request already DELETED: no-op
	requests.On("UpdateStatus", mock.Anything, int64(5), booking.StatusNew, booking.StatusDeleted).
		Return(int64(0), nil).Once()
	requests.On("GetByID", mock.Anything, int64(5)).
		Return(&booking.Request{ID: 5, Status: booking.StatusDeleted}, nil).Once()
	require.NoError(t, svc.CancelOne(context.Background(), 5))
}

func TestCancelOneMissingRequest(t *testing.T) {
	requests := new(MockRequestRepository)
	requests.On("UpdateStatus", mock.Anything, int64(9), booking.StatusNew, booking.StatusDeleted).
		Return(int64(0), nil)
	requests.On("GetByID", mock.Anything, int64(9)).Return(nil, nil)

	svc := NewService(requests, new(MockEquipmentRepository), new(MockNotifier), zerolog.Nop())
	err := svc.CancelOne(context.Background(), 9)
	assert.True(t, fault.IsNotFound(err))
}

func TestCancelAllSecondCallReturnsZero(t *testing.T) {
	requests := new(MockRequestRepository)
	requests.On("UpdateStatusAll", mock.Anything, int64(100), booking.StatusNew, booking.StatusCancelled).
		Return(int64(3), nil).Once()
	requests.On("UpdateStatusAll", mock.Anything, int64(100), booking.StatusNew, booking.StatusCancelled).
		Return(int64(0), nil).Once()

	svc := NewService(requests, new(MockEquipmentRepository), new(MockNotifier), zerolog.Nop())

	count, err := svc.CancelAll(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = svc.CancelAll(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSubmitRoundTrip(t *testing.T) {
	requests := new(MockRequestRepository)
	equipRepo := new(MockEquipmentRepository)
	notifier := new(MockNotifier)

	var stored *booking.Request
	equipRepo.On("GetByName", mock.Anything, mock.Anything).
		Return(&equipment.Equipment{ID: 7, Name: "Excavator-200", PricePerDay: 100}, nil)
	requests.On("CreateWithInterval", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*booking.Request)
			stored.ID = 1
		}).Return(nil)
	notifier.On("NotifyOperator", mock.Anything, mock.Anything).Return(nil)
	requests.On("ListByRequester", mock.Anything, int64(100), []booking.Status{booking.StatusNew}).
		Return([]*booking.Request{}, nil).
		Run(func(args mock.Arguments) {}).
		Maybe()

	svc := NewService(requests, equipRepo, notifier, zerolog.Nop())
	d := testDraft()
	_, err := svc.Submit(context.Background(), d)
	require.NoError(t, err)

	requests.ExpectedCalls = requests.ExpectedCalls[:0]
	requests.On("ListByRequester", mock.Anything, int64(100), []booking.Status{booking.StatusNew}).
		Return([]*booking.Request{stored}, nil)

	got, err := svc.ListByRequester(context.Background(), 100, booking.StatusNew)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, booking.StatusNew, got[0].Status)
	assert.Equal(t, d.EquipmentName, got[0].EquipmentName)
	assert.Equal(t, d.Date, got[0].Date)
	assert.Equal(t, d.Phone, got[0].Phone)
	assert.Equal(t, d.Address, got[0].Address)
}
