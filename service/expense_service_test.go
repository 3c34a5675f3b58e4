package service

import (
	"context"
	"testing"

	"chipledger/events"
	"chipledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newExpenseServiceMocks() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockSessionRepository, *MockPlayerRepository, *MockExpenseRepository, *MockEventPublisher) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSessionRepo := new(MockSessionRepository)
	mockPlayerRepo := new(MockPlayerRepository)
	mockExpenseRepo := new(MockExpenseRepository)
	mockEvents := new(MockEventPublisher)

	mockUoW.SetRepositories(mockSessionRepo, mockPlayerRepo, nil, mockExpenseRepo, nil)
	mockUoW.SetEventBus(mockEvents)
	return mockUoW, mockFactory, mockSessionRepo, mockPlayerRepo, mockExpenseRepo, mockEvents
}

// distributionDetail builds a session with three players and one expense
func distributionDetail(expenseAmount, rakeChips int64) *models.SessionDetail {
	return &models.SessionDetail{
		Session: &models.Session{ID: 1, ChipsToCashRatio: 1, RakeAmount: rakeChips},
		Players: []*models.Player{
			{ID: 5, SessionID: 1, Name: "Alice"},
			{ID: 6, SessionID: 1, Name: "Ben"},
			{ID: 7, SessionID: 1, Name: "Carol"},
		},
		Expenses: []*models.Expense{
			{ID: 20, SessionID: 1, Amount: expenseAmount, Note: "pizza"},
		},
	}
}

func TestExpenseService_AddExpense(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, mockPlayerRepo, mockExpenseRepo, mockEvents := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	payerID := int64(5)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetByID", ctx, int64(1)).Return(&models.Session{ID: 1}, nil)
	mockPlayerRepo.On("GetByID", ctx, int64(5)).Return(&models.Player{ID: 5, SessionID: 1, Name: "Alice"}, nil)
	mockExpenseRepo.On("Create", ctx, mock.MatchedBy(func(e *models.Expense) bool {
		return e.SessionID == 1 && e.Amount == 3000 && e.Note == "pizza" && *e.PayerID == 5
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Expense).ID = 20
	}).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	expense, err := service.AddExpense(ctx, 1, 3000, "pizza", &payerID)

	require.NoError(t, err)
	assert.Equal(t, int64(3000), expense.Amount)
	assert.Equal(t, int64(5), *expense.PayerID)

	require.Len(t, mockEvents.Events, 1)
	event := mockEvents.Events[0].(events.ExpenseAddedEvent)
	assert.Equal(t, int64(20), event.ExpenseID)
	assert.Equal(t, int64(3000), event.Amount)
	assert.Equal(t, int64(5), *event.PayerID)
}

func TestExpenseService_AddExpense_PayerFromAnotherSession(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, mockPlayerRepo, _, _ := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	payerID := int64(5)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetByID", ctx, int64(1)).Return(&models.Session{ID: 1}, nil)
	mockPlayerRepo.On("GetByID", ctx, int64(5)).Return(&models.Player{ID: 5, SessionID: 2}, nil)

	_, err := service.AddExpense(ctx, 1, 3000, "pizza", &payerID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenseService_DistributeEqual_RemainderToFirstParticipants(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockExpenseRepo, mockEvents := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	// 1000 across three players: 334, 333, 333 in the caller's order.
	detail := distributionDetail(1000, 0)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockExpenseRepo.On("ReplaceDistributions", ctx, int64(20), mock.MatchedBy(func(ds []*models.ExpenseDistribution) bool {
		return len(ds) == 3 &&
			ds[0].PlayerID == 7 && ds[0].Amount == 334 &&
			ds[1].PlayerID == 6 && ds[1].Amount == 333 &&
			ds[2].PlayerID == 5 && ds[2].Amount == 333
	})).Return(nil)
	mockExpenseRepo.On("Update", ctx, mock.MatchedBy(func(e *models.Expense) bool {
		return e.PaidFromRake == 0
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	expense, err := service.DistributeEqual(ctx, 1, 20, []int64{7, 6, 5}, false)

	require.NoError(t, err)
	assert.True(t, expense.IsFullyDistributed())
	assert.Equal(t, int64(334), expense.ShareFor(7))

	require.Len(t, mockEvents.Events, 1)
	event := mockEvents.Events[0].(events.ExpenseDistributedEvent)
	assert.Equal(t, 3, event.Participants)
}

func TestExpenseService_DistributeEqual_RakePoolIsLastParticipant(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockExpenseRepo, _ := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	// 1000 across two players plus the rake pool: 334, 333 and 333 to rake.
	detail := distributionDetail(1000, 5000)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockExpenseRepo.On("ReplaceDistributions", ctx, int64(20), mock.MatchedBy(func(ds []*models.ExpenseDistribution) bool {
		return len(ds) == 2 &&
			ds[0].PlayerID == 5 && ds[0].Amount == 334 &&
			ds[1].PlayerID == 6 && ds[1].Amount == 333
	})).Return(nil)
	mockExpenseRepo.On("Update", ctx, mock.MatchedBy(func(e *models.Expense) bool {
		return e.PaidFromRake == 333
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	expense, err := service.DistributeEqual(ctx, 1, 20, []int64{5, 6}, true)

	require.NoError(t, err)
	assert.Equal(t, int64(333), expense.PaidFromRake)
	assert.True(t, expense.IsFullyDistributed())
}

func TestExpenseService_DistributeEqual_NoParticipants(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _ := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	_, err := service.DistributeEqual(ctx, 1, 20, nil, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestExpenseService_DistributeManual(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockExpenseRepo, _ := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	detail := distributionDetail(3000, 5000)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockExpenseRepo.On("ReplaceDistributions", ctx, int64(20), mock.Anything).Return(nil)
	mockExpenseRepo.On("Update", ctx, mock.MatchedBy(func(e *models.Expense) bool {
		return e.PaidFromRake == 1000
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	alice, ben := int64(5), int64(6)
	expense, err := service.DistributeManual(ctx, 1, 20, []ManualShare{
		{PlayerID: &alice, Amount: 1500},
		{PlayerID: &ben, Amount: 500},
		{PlayerID: nil, Amount: 1000},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1500), expense.ShareFor(5))
	assert.Equal(t, int64(1000), expense.PaidFromRake)
}

func TestExpenseService_DistributeManual_SumMismatch(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, _, _ := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetDetailByID", ctx, int64(1)).Return(distributionDetail(3000, 0), nil)

	alice := int64(5)
	_, err := service.DistributeManual(ctx, 1, 20, []ManualShare{
		{PlayerID: &alice, Amount: 2999},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestExpenseService_DistributeManual_RakeShareExceedsAvailable(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, _, _ := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	// 500 chips of rake at ratio 1 cannot absorb a 1000 rake share.
	detail := distributionDetail(3000, 500)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)

	alice := int64(5)
	_, err := service.DistributeManual(ctx, 1, 20, []ManualShare{
		{PlayerID: &alice, Amount: 2000},
		{PlayerID: nil, Amount: 1000},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrState)
}

func TestExpenseService_DistributeManual_UnknownPlayer(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, _, _ := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetDetailByID", ctx, int64(1)).Return(distributionDetail(3000, 0), nil)

	stranger := int64(99)
	_, err := service.DistributeManual(ctx, 1, 20, []ManualShare{
		{PlayerID: &stranger, Amount: 3000},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenseService_DeleteExpense(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockExpenseRepo, mockEvents := newExpenseServiceMocks()

	service := NewExpenseService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockExpenseRepo.On("GetByID", ctx, int64(20)).Return(&models.Expense{ID: 20, SessionID: 1, Amount: 3000}, nil)
	mockExpenseRepo.On("Delete", ctx, int64(20)).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	err := service.DeleteExpense(ctx, 1, 20)
	require.NoError(t, err)
	mockExpenseRepo.AssertExpectations(t)

	require.Len(t, mockEvents.Events, 1)
	event := mockEvents.Events[0].(events.ExpenseDeletedEvent)
	assert.Equal(t, int64(20), event.ExpenseID)
	assert.Equal(t, int64(3000), event.Amount)
}
