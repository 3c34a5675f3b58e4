package service

import (
	"context"
	"sync"

	"chipledger/events"
	"chipledger/models"

	"github.com/stretchr/testify/mock"
)

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) GetDetailByID(ctx context.Context, id int64) (*models.SessionDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionDetail), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Touch(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPlayerRepository is a mock implementation of PlayerRepository
type MockPlayerRepository struct {
	mock.Mock
}

func (m *MockPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

func (m *MockPlayerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Player, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Player), args.Error(1)
}

func (m *MockPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

func (m *MockPlayerRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPlayerRepository) AddChipTransaction(ctx context.Context, tx *models.ChipTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockPlayerRepository) DeleteChipTransactionsByPlayer(ctx context.Context, playerID int64) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

// MockSessionBankRepository is a mock implementation of SessionBankRepository
type MockSessionBankRepository struct {
	mock.Mock
}

func (m *MockSessionBankRepository) GetOrCreateBySession(ctx context.Context, sessionID int64) (*models.SessionBank, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionBank), args.Error(1)
}

func (m *MockSessionBankRepository) GetBySession(ctx context.Context, sessionID int64) (*models.SessionBank, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionBank), args.Error(1)
}

func (m *MockSessionBankRepository) Update(ctx context.Context, bank *models.SessionBank) error {
	args := m.Called(ctx, bank)
	return args.Error(0)
}

func (m *MockSessionBankRepository) AddTransaction(ctx context.Context, tx *models.SessionBankTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockSessionBankRepository) DeleteTransactionsByPlayer(ctx context.Context, playerID int64) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

// MockExpenseRepository is a mock implementation of ExpenseRepository
type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Expense, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Expense), args.Error(1)
}

func (m *MockExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockExpenseRepository) ReplaceDistributions(ctx context.Context, expenseID int64, distributions []*models.ExpenseDistribution) error {
	args := m.Called(ctx, expenseID, distributions)
	return args.Error(0)
}

func (m *MockExpenseRepository) DeleteDistributionsByPlayer(ctx context.Context, playerID int64) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

func (m *MockExpenseRepository) ClearPayer(ctx context.Context, playerID int64) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

// MockSettlementTransferRepository is a mock implementation of SettlementTransferRepository
type MockSettlementTransferRepository struct {
	mock.Mock
}

func (m *MockSettlementTransferRepository) Create(ctx context.Context, transfer *models.SettlementTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockSettlementTransferRepository) GetByID(ctx context.Context, id int64) (*models.SettlementTransfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SettlementTransfer), args.Error(1)
}

func (m *MockSettlementTransferRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.SettlementTransfer, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SettlementTransfer), args.Error(1)
}

func (m *MockSettlementTransferRepository) Update(ctx context.Context, transfer *models.SettlementTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockSettlementTransferRepository) DeleteIncompleteBySession(ctx context.Context, sessionID int64) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing.
// It records every published event so tests can assert on them.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return whatever SetRepositories installed rather than going through
// testify, since tests always need real mock instances back.
type MockUnitOfWork struct {
	mock.Mock

	sessionRepo  SessionRepository
	playerRepo   PlayerRepository
	bankRepo     SessionBankRepository
	expenseRepo  ExpenseRepository
	transferRepo SettlementTransferRepository
	eventBus     EventPublisher
}

// SetRepositories installs the repository mocks this unit of work hands out
func (m *MockUnitOfWork) SetRepositories(
	sessionRepo SessionRepository,
	playerRepo PlayerRepository,
	bankRepo SessionBankRepository,
	expenseRepo ExpenseRepository,
	transferRepo SettlementTransferRepository,
) {
	m.sessionRepo = sessionRepo
	m.playerRepo = playerRepo
	m.bankRepo = bankRepo
	m.expenseRepo = expenseRepo
	m.transferRepo = transferRepo
}

// SetEventBus installs the event publisher; defaults to a recording publisher
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) SessionRepository() SessionRepository {
	return m.sessionRepo
}

func (m *MockUnitOfWork) PlayerRepository() PlayerRepository {
	return m.playerRepo
}

func (m *MockUnitOfWork) SessionBankRepository() SessionBankRepository {
	return m.bankRepo
}

func (m *MockUnitOfWork) ExpenseRepository() ExpenseRepository {
	return m.expenseRepo
}

func (m *MockUnitOfWork) SettlementTransferRepository() SettlementTransferRepository {
	return m.transferRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		m.eventBus = &MockEventPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
