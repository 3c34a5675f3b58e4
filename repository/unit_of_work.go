package repository

import (
	"context"
	"fmt"

	"chipledger/database"
	"chipledger/events"
	"chipledger/service"
	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	sessionRepo      service.SessionRepository
	playerRepo       service.PlayerRepository
	bankRepo         service.SessionBankRepository
	expenseRepo      service.ExpenseRepository
	transferRepo     service.SettlementTransferRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.sessionRepo = newSessionRepositoryWithTx(tx)
	u.playerRepo = newPlayerRepositoryWithTx(tx)
	u.bankRepo = newSessionBankRepositoryWithTx(tx)
	u.expenseRepo = newExpenseRepositoryWithTx(tx)
	u.transferRepo = newSettlementTransferRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// SessionRepository returns the session repository for this unit of work
func (u *unitOfWork) SessionRepository() service.SessionRepository {
	if u.sessionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.sessionRepo
}

// PlayerRepository returns the player repository for this unit of work
func (u *unitOfWork) PlayerRepository() service.PlayerRepository {
	if u.playerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.playerRepo
}

// SessionBankRepository returns the bank repository for this unit of work
func (u *unitOfWork) SessionBankRepository() service.SessionBankRepository {
	if u.bankRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.bankRepo
}

// ExpenseRepository returns the expense repository for this unit of work
func (u *unitOfWork) ExpenseRepository() service.ExpenseRepository {
	if u.expenseRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.expenseRepo
}

// SettlementTransferRepository returns the settlement transfer repository for this unit of work
func (u *unitOfWork) SettlementTransferRepository() service.SettlementTransferRepository {
	if u.transferRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transferRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
