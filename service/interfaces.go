package service

import (
	"context"

	"chipledger/events"
	"chipledger/models"
)

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	// Create creates a new session
	Create(ctx context.Context, session *models.Session) error

	// GetByID retrieves a session by its ID
	GetByID(ctx context.Context, id int64) (*models.Session, error)

	// GetDetailByID retrieves the full session aggregate: players with chip
	// transactions, expenses with distributions, and the bank with its
	// transactions, as one consistent snapshot
	GetDetailByID(ctx context.Context, id int64) (*models.SessionDetail, error)

	// Update updates a session's mutable fields and bumps updated_at
	Update(ctx context.Context, session *models.Session) error

	// Touch bumps the session's updated_at; every mutation command calls it
	// so settlement snapshots can detect staleness
	Touch(ctx context.Context, id int64) error
}

// PlayerRepository defines the interface for player and chip transaction data access
type PlayerRepository interface {
	// Create creates a new player
	Create(ctx context.Context, player *models.Player) error

	// GetByID retrieves a player with their chip transactions
	GetByID(ctx context.Context, id int64) (*models.Player, error)

	// GetBySession returns all players of a session, in creation order
	GetBySession(ctx context.Context, sessionID int64) ([]*models.Player, error)

	// Update updates a player's mutable fields
	Update(ctx context.Context, player *models.Player) error

	// Delete deletes a player
	Delete(ctx context.Context, id int64) error

	// AddChipTransaction appends a chip movement for a player
	AddChipTransaction(ctx context.Context, tx *models.ChipTransaction) error

	// DeleteChipTransactionsByPlayer removes all chip movements of a player
	DeleteChipTransactionsByPlayer(ctx context.Context, playerID int64) error
}

// SessionBankRepository defines the interface for bank data access
type SessionBankRepository interface {
	// GetOrCreateBySession returns the session's bank, creating it on first use
	GetOrCreateBySession(ctx context.Context, sessionID int64) (*models.SessionBank, error)

	// GetBySession returns the session's bank with transactions, or nil
	GetBySession(ctx context.Context, sessionID int64) (*models.SessionBank, error)

	// Update updates the bank's mutable fields
	Update(ctx context.Context, bank *models.SessionBank) error

	// AddTransaction appends a cash movement to the bank
	AddTransaction(ctx context.Context, tx *models.SessionBankTransaction) error

	// DeleteTransactionsByPlayer removes all of a player's cash movements
	DeleteTransactionsByPlayer(ctx context.Context, playerID int64) error
}

// ExpenseRepository defines the interface for expense data access
type ExpenseRepository interface {
	// Create creates a new expense
	Create(ctx context.Context, expense *models.Expense) error

	// GetByID retrieves an expense with its distributions
	GetByID(ctx context.Context, id int64) (*models.Expense, error)

	// GetBySession returns all expenses of a session, in creation order
	GetBySession(ctx context.Context, sessionID int64) ([]*models.Expense, error)

	// Update updates an expense's mutable fields
	Update(ctx context.Context, expense *models.Expense) error

	// Delete deletes an expense and its distributions
	Delete(ctx context.Context, id int64) error

	// ReplaceDistributions atomically swaps the expense's distribution list
	ReplaceDistributions(ctx context.Context, expenseID int64, distributions []*models.ExpenseDistribution) error

	// DeleteDistributionsByPlayer removes a player's shares across all expenses
	DeleteDistributionsByPlayer(ctx context.Context, playerID int64) error

	// ClearPayer nullifies the payer reference on expenses fronted by a player
	ClearPayer(ctx context.Context, playerID int64) error
}

// SettlementTransferRepository defines the interface for settlement transfer records
type SettlementTransferRepository interface {
	// Create persists a proposed transfer
	Create(ctx context.Context, transfer *models.SettlementTransfer) error

	// GetByID retrieves a transfer by its ID
	GetByID(ctx context.Context, id int64) (*models.SettlementTransfer, error)

	// GetBySession returns all transfers of a session, in creation order
	GetBySession(ctx context.Context, sessionID int64) ([]*models.SettlementTransfer, error)

	// Update updates a transfer's completion state
	Update(ctx context.Context, transfer *models.SettlementTransfer) error

	// DeleteIncompleteBySession drops not-yet-completed transfers so a
	// recomputed plan can replace them
	DeleteIncompleteBySession(ctx context.Context, sessionID int64) error
}

// SessionService defines the interface for session-level operations
type SessionService interface {
	// CreateSession creates a new session after validating its configuration
	CreateSession(ctx context.Context, params CreateSessionParams) (*models.Session, error)

	// GetSessionDetail returns the full session aggregate
	GetSessionDetail(ctx context.Context, sessionID int64) (*models.SessionDetail, error)

	// SetRakeAndTips updates the chip amounts carved out for rake and tips
	SetRakeAndTips(ctx context.Context, sessionID int64, rakeChips, tipsChips int64) (*models.Session, error)

	// RemovePlayer deletes a player and runs the documented cleanup cascade:
	// chip transactions and expense shares are deleted, expense payer
	// references are nullified
	RemovePlayer(ctx context.Context, sessionID int64, playerID int64) error
}

// PlayerService defines the interface for per-player ledger operations
type PlayerService interface {
	// AddPlayer registers a new player in a session
	AddPlayer(ctx context.Context, sessionID int64, name string) (*models.Player, error)

	// RecordBuyIn registers an initial chip purchase
	RecordBuyIn(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error)

	// RecordAddOn registers a subsequent chip purchase
	RecordAddOn(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error)

	// RecordCashOut converts chips back and marks the player finished
	RecordCashOut(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error)

	// Rebuy re-enters a finished player with a fresh buy-in
	Rebuy(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error)

	// SetRakeback assigns or clears a player's rakeback
	SetRakeback(ctx context.Context, sessionID, playerID int64, getsRakeback bool, amount int64) (*models.Player, error)
}

// BankService defines the interface for session bank operations
type BankService interface {
	// Deposit records cash a player paid into the bank
	Deposit(ctx context.Context, sessionID, playerID, amount int64, note string) (*models.SessionBank, error)

	// Withdraw records cash a player took out of the bank
	Withdraw(ctx context.Context, sessionID, playerID, amount int64, note string) (*models.SessionBank, error)

	// PayExpenseFromBank records an organizational disbursement covering an expense
	PayExpenseFromBank(ctx context.Context, sessionID, expenseID, amount int64, note string) (*models.SessionBank, error)

	// PayTipsFromBank records an organizational disbursement covering tips
	PayTipsFromBank(ctx context.Context, sessionID, amount int64, note string) (*models.SessionBank, error)

	// CloseBank closes the bank; fails while settlement cash is still owed to it
	CloseBank(ctx context.Context, sessionID int64) (*models.SessionBank, error)

	// ReopenBank reopens a closed bank
	ReopenBank(ctx context.Context, sessionID int64) (*models.SessionBank, error)
}

// ManualShare is one participant's explicit share in a manual distribution.
// A nil PlayerID routes the share to the rake pool.
type ManualShare struct {
	PlayerID *int64
	Amount   int64
}

// ExpenseService defines the interface for shared-expense operations
type ExpenseService interface {
	// AddExpense registers a shared expense, optionally fronted by a player
	AddExpense(ctx context.Context, sessionID, amount int64, note string, payerID *int64) (*models.Expense, error)

	// DeleteExpense removes an expense and its distributions
	DeleteExpense(ctx context.Context, sessionID, expenseID int64) error

	// DistributeEqual splits the expense evenly across the given players,
	// optionally including the rake pool as one more participant; the
	// integer-division remainder goes one unit at a time to the first
	// participants in the given order
	DistributeEqual(ctx context.Context, sessionID, expenseID int64, playerIDs []int64, includeRakePool bool) (*models.Expense, error)

	// DistributeManual applies caller-supplied shares, which must sum to the
	// expense amount exactly
	DistributeManual(ctx context.Context, sessionID, expenseID int64, shares []ManualShare) (*models.Expense, error)
}

// SettlementService defines the interface for settlement operations
type SettlementService interface {
	// CalculateSettlement computes the transfer plan for a session whose
	// players have all finished; read-only and deterministic
	CalculateSettlement(ctx context.Context, sessionID int64) (*models.SettlementResult, error)

	// SaveTransfers persists a computed plan, rejecting it if the session
	// was mutated after the plan's snapshot was taken
	SaveTransfers(ctx context.Context, result *models.SettlementResult) ([]*models.SettlementTransfer, error)

	// SetTransferCompleted toggles a transfer's real-world completion flag;
	// it never touches ledger balances
	SetTransferCompleted(ctx context.Context, transferID int64, completed bool) (*models.SettlementTransfer, error)
}

// TransferFileService defines the interface for session export and import
type TransferFileService interface {
	// Export serializes the full session graph into a versioned document
	Export(ctx context.Context, sessionID int64) (*TransferFile, error)

	// Import recreates a session from a document, re-mapping every
	// identifier; any unresolvable reference aborts the whole import
	Import(ctx context.Context, file *TransferFile) (*models.Session, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	SessionRepository() SessionRepository
	PlayerRepository() PlayerRepository
	SessionBankRepository() SessionBankRepository
	ExpenseRepository() ExpenseRepository
	SettlementTransferRepository() SettlementTransferRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
