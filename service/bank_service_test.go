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

func newBankServiceMocks() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockSessionRepository, *MockPlayerRepository, *MockSessionBankRepository, *MockExpenseRepository, *MockSettlementTransferRepository, *MockEventPublisher) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSessionRepo := new(MockSessionRepository)
	mockPlayerRepo := new(MockPlayerRepository)
	mockBankRepo := new(MockSessionBankRepository)
	mockExpenseRepo := new(MockExpenseRepository)
	mockTransferRepo := new(MockSettlementTransferRepository)
	mockEvents := new(MockEventPublisher)

	mockUoW.SetRepositories(mockSessionRepo, mockPlayerRepo, mockBankRepo, mockExpenseRepo, mockTransferRepo)
	mockUoW.SetEventBus(mockEvents)
	return mockUoW, mockFactory, mockSessionRepo, mockPlayerRepo, mockBankRepo, mockExpenseRepo, mockTransferRepo, mockEvents
}

func TestBankService_Deposit(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, mockPlayerRepo, mockBankRepo, _, _, mockEvents := newBankServiceMocks()

	service := NewBankService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPlayerRepo.On("GetByID", ctx, int64(5)).Return(&models.Player{ID: 5, SessionID: 1, Name: "Alice"}, nil)
	mockBankRepo.On("GetOrCreateBySession", ctx, int64(1)).Return(&models.SessionBank{ID: 10, SessionID: 1}, nil)
	mockBankRepo.On("AddTransaction", ctx, mock.MatchedBy(func(tx *models.SessionBankTransaction) bool {
		return tx.BankID == 10 && *tx.PlayerID == 5 &&
			tx.Type == models.BankTransactionTypeDeposit && tx.Amount == 5000
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	bank, err := service.Deposit(ctx, 1, 5, 5000, "partial loss upfront")

	require.NoError(t, err)
	assert.Equal(t, int64(5000), bank.TotalDeposited())

	require.Len(t, mockEvents.Events, 1)
	event := mockEvents.Events[0].(events.BankTransactionEvent)
	assert.Equal(t, models.BankTransactionTypeDeposit, event.TransactionType)
	assert.Equal(t, int64(5), *event.PlayerID)
}

func TestBankService_Deposit_NonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _, _, _ := newBankServiceMocks()

	service := NewBankService(mockFactory)

	_, err := service.Deposit(ctx, 1, 5, 0, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestBankService_Deposit_ClosedBank(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockPlayerRepo, mockBankRepo, _, _, _ := newBankServiceMocks()

	service := NewBankService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPlayerRepo.On("GetByID", ctx, int64(5)).Return(&models.Player{ID: 5, SessionID: 1}, nil)
	mockBankRepo.On("GetOrCreateBySession", ctx, int64(1)).Return(&models.SessionBank{ID: 10, SessionID: 1, IsClosed: true}, nil)

	_, err := service.Deposit(ctx, 1, 5, 5000, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrState)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestBankService_Withdraw_ExceedsBalance(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockPlayerRepo, mockBankRepo, _, _, _ := newBankServiceMocks()

	service := NewBankService(mockFactory)

	playerID := int64(5)
	bank := &models.SessionBank{
		ID: 10, SessionID: 1,
		Transactions: []*models.SessionBankTransaction{
			{BankID: 10, PlayerID: &playerID, Type: models.BankTransactionTypeDeposit, Amount: 3000},
		},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockPlayerRepo.On("GetByID", ctx, int64(5)).Return(&models.Player{ID: 5, SessionID: 1}, nil)
	mockBankRepo.On("GetOrCreateBySession", ctx, int64(1)).Return(bank, nil)

	_, err := service.Withdraw(ctx, 1, 5, 4000, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrState)
}

func TestBankService_PayExpenseFromBank(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockBankRepo, mockExpenseRepo, _, _ := newBankServiceMocks()

	service := NewBankService(mockFactory)

	playerID := int64(5)
	bank := &models.SessionBank{
		ID: 10, SessionID: 1,
		Transactions: []*models.SessionBankTransaction{
			{BankID: 10, PlayerID: &playerID, Type: models.BankTransactionTypeDeposit, Amount: 5000},
		},
	}
	expense := &models.Expense{ID: 7, SessionID: 1, Amount: 3000, Note: "pizza"}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockExpenseRepo.On("GetByID", ctx, int64(7)).Return(expense, nil)
	mockBankRepo.On("GetOrCreateBySession", ctx, int64(1)).Return(bank, nil)
	mockBankRepo.On("AddTransaction", ctx, mock.MatchedBy(func(tx *models.SessionBankTransaction) bool {
		return tx.PlayerID == nil && tx.Type == models.BankTransactionTypeExpensePayment &&
			tx.Amount == 3000 && *tx.ExpenseID == 7
	})).Return(nil)
	mockExpenseRepo.On("Update", ctx, mock.MatchedBy(func(e *models.Expense) bool {
		return e.PaidFromBank == 3000
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	updated, err := service.PayExpenseFromBank(ctx, 1, 7, 3000, "pizza run")

	require.NoError(t, err)
	assert.Equal(t, int64(3000), updated.OrganizationalSpend())
	assert.True(t, expense.IsFullyPaid())
}

func TestBankService_PayExpenseFromBank_Overpayment(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, _, mockExpenseRepo, _, _ := newBankServiceMocks()

	service := NewBankService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockExpenseRepo.On("GetByID", ctx, int64(7)).Return(&models.Expense{
		ID: 7, SessionID: 1, Amount: 3000, PaidFromBank: 2000,
	}, nil)

	_, err := service.PayExpenseFromBank(ctx, 1, 7, 2000, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrState)
}

func TestBankService_PayTipsFromBank(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockBankRepo, _, _, _ := newBankServiceMocks()

	service := NewBankService(mockFactory)

	playerID := int64(5)
	bank := &models.SessionBank{
		ID: 10, SessionID: 1,
		Transactions: []*models.SessionBankTransaction{
			{BankID: 10, PlayerID: &playerID, Type: models.BankTransactionTypeDeposit, Amount: 5000},
		},
	}
	session := &models.Session{ID: 1, TipsAmount: 2000, ChipsToCashRatio: 1}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetByID", ctx, int64(1)).Return(session, nil)
	mockBankRepo.On("GetOrCreateBySession", ctx, int64(1)).Return(bank, nil)
	mockBankRepo.On("AddTransaction", ctx, mock.MatchedBy(func(tx *models.SessionBankTransaction) bool {
		return tx.PlayerID == nil && tx.Type == models.BankTransactionTypeTipPayment && tx.Amount == 2000
	})).Return(nil)
	mockSessionRepo.On("Update", ctx, mock.MatchedBy(func(s *models.Session) bool {
		return s.TipsPaidFromBank == 2000
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	_, err := service.PayTipsFromBank(ctx, 1, 2000, "dealer tips")
	require.NoError(t, err)
}

func TestBankService_CloseBank(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockBankRepo, _, _, mockEvents := newBankServiceMocks()

	service := NewBankService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBankRepo.On("GetBySession", ctx, int64(1)).Return(&models.SessionBank{ID: 10, SessionID: 1}, nil)
	mockBankRepo.On("Update", ctx, mock.MatchedBy(func(b *models.SessionBank) bool {
		return b.IsClosed
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	bank, err := service.CloseBank(ctx, 1)

	require.NoError(t, err)
	assert.True(t, bank.IsClosed)

	require.Len(t, mockEvents.Events, 1)
	event := mockEvents.Events[0].(events.BankClosedEvent)
	assert.True(t, event.Closed)
}

func TestBankService_CloseBank_OutstandingCollections(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockBankRepo, _, mockTransferRepo, _ := newBankServiceMocks()

	service := NewBankService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBankRepo.On("GetBySession", ctx, int64(1)).Return(&models.SessionBank{
		ID: 10, SessionID: 1, ExpectedTotal: 5000,
	}, nil)
	playerID := int64(9)
	mockTransferRepo.On("GetBySession", ctx, int64(1)).Return([]*models.SettlementTransfer{
		{SessionID: 1, FromPlayerID: &playerID, Amount: 3000, Type: models.TransferTypePlayerToBank, IsCompleted: true},
		{SessionID: 1, FromPlayerID: &playerID, Amount: 2000, Type: models.TransferTypePlayerToBank},
	}, nil)

	_, err := service.CloseBank(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrState)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestBankService_ReopenBank(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockSessionRepo, _, mockBankRepo, _, _, mockEvents := newBankServiceMocks()

	service := NewBankService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockBankRepo.On("GetBySession", ctx, int64(1)).Return(&models.SessionBank{ID: 10, SessionID: 1, IsClosed: true}, nil)
	mockBankRepo.On("Update", ctx, mock.MatchedBy(func(b *models.SessionBank) bool {
		return !b.IsClosed
	})).Return(nil)
	mockSessionRepo.On("Touch", ctx, int64(1)).Return(nil)

	bank, err := service.ReopenBank(ctx, 1)

	require.NoError(t, err)
	assert.False(t, bank.IsClosed)

	require.Len(t, mockEvents.Events, 1)
	event := mockEvents.Events[0].(events.BankClosedEvent)
	assert.False(t, event.Closed)
}
