package service

import (
	"context"
	"fmt"

	"chipledger/events"
	"chipledger/models"
)

type bankService struct {
	uowFactory UnitOfWorkFactory
}

// NewBankService creates a new bank service
func NewBankService(uowFactory UnitOfWorkFactory) BankService {
	return &bankService{
		uowFactory: uowFactory,
	}
}

func (s *bankService) Deposit(ctx context.Context, sessionID, playerID, amount int64, note string) (*models.SessionBank, error) {
	return s.playerTransaction(ctx, sessionID, playerID, amount, note, models.BankTransactionTypeDeposit)
}

func (s *bankService) Withdraw(ctx context.Context, sessionID, playerID, amount int64, note string) (*models.SessionBank, error) {
	return s.playerTransaction(ctx, sessionID, playerID, amount, note, models.BankTransactionTypeWithdrawal)
}

func (s *bankService) playerTransaction(ctx context.Context, sessionID, playerID, amount int64, note string, txType models.BankTransactionType) (*models.SessionBank, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || player.SessionID != sessionID {
		return nil, fmt.Errorf("%w: player %d in session %d", ErrNotFound, playerID, sessionID)
	}

	bank, err := s.openBank(ctx, uow, sessionID)
	if err != nil {
		return nil, err
	}

	if txType == models.BankTransactionTypeWithdrawal && amount > bank.NetBalance() {
		return nil, fmt.Errorf("%w: withdrawal of %d exceeds the %d held by the bank", ErrState, amount, bank.NetBalance())
	}

	tx := &models.SessionBankTransaction{
		BankID:   bank.ID,
		PlayerID: &playerID,
		Type:     txType,
		Amount:   amount,
		Note:     note,
	}
	if err := uow.SessionBankRepository().AddTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to add bank transaction: %w", err)
	}
	bank.Transactions = append(bank.Transactions, tx)

	return s.finish(ctx, uow, sessionID, bank, tx)
}

func (s *bankService) PayExpenseFromBank(ctx context.Context, sessionID, expenseID, amount int64, note string) (*models.SessionBank, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expense, err := uow.ExpenseRepository().GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if expense == nil || expense.SessionID != sessionID {
		return nil, fmt.Errorf("%w: expense %d in session %d", ErrNotFound, expenseID, sessionID)
	}
	if expense.PaidFromBank+amount > expense.Amount {
		return nil, fmt.Errorf("%w: payment of %d would exceed the expense amount of %d", ErrState, expense.PaidFromBank+amount, expense.Amount)
	}

	bank, err := s.openBank(ctx, uow, sessionID)
	if err != nil {
		return nil, err
	}
	if amount > bank.NetBalance() {
		return nil, fmt.Errorf("%w: payment of %d exceeds the %d held by the bank", ErrState, amount, bank.NetBalance())
	}

	tx := &models.SessionBankTransaction{
		BankID:    bank.ID,
		Type:      models.BankTransactionTypeExpensePayment,
		Amount:    amount,
		Note:      note,
		ExpenseID: &expenseID,
	}
	if err := uow.SessionBankRepository().AddTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to add bank transaction: %w", err)
	}
	bank.Transactions = append(bank.Transactions, tx)

	expense.PaidFromBank += amount
	if err := uow.ExpenseRepository().Update(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	return s.finish(ctx, uow, sessionID, bank, tx)
}

func (s *bankService) PayTipsFromBank(ctx context.Context, sessionID, amount int64, note string) (*models.SessionBank, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	bank, err := s.openBank(ctx, uow, sessionID)
	if err != nil {
		return nil, err
	}
	if amount > bank.NetBalance() {
		return nil, fmt.Errorf("%w: payment of %d exceeds the %d held by the bank", ErrState, amount, bank.NetBalance())
	}

	tx := &models.SessionBankTransaction{
		BankID: bank.ID,
		Type:   models.BankTransactionTypeTipPayment,
		Amount: amount,
		Note:   note,
	}
	if err := uow.SessionBankRepository().AddTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to add bank transaction: %w", err)
	}
	bank.Transactions = append(bank.Transactions, tx)

	session.TipsPaidFromBank += amount
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return s.finish(ctx, uow, sessionID, bank, tx)
}

func (s *bankService) CloseBank(ctx context.Context, sessionID int64) (*models.SessionBank, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bank, err := uow.SessionBankRepository().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	if bank == nil {
		return nil, fmt.Errorf("%w: session %d has no bank", ErrNotFound, sessionID)
	}
	if bank.IsClosed {
		return nil, fmt.Errorf("%w: bank is already closed", ErrState)
	}

	// A bank still owed settlement cash cannot be closed: completed
	// player-to-bank transfers count against the expected total.
	if bank.ExpectedTotal > 0 {
		transfers, err := uow.SettlementTransferRepository().GetBySession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get settlement transfers: %w", err)
		}
		var collected int64
		for _, t := range transfers {
			if t.Type == models.TransferTypePlayerToBank && t.IsCompleted {
				collected += t.Amount
			}
		}
		if remaining := bank.ExpectedTotal - collected; remaining > 0 {
			return nil, fmt.Errorf("%w: bank still has %d to collect", ErrState, remaining)
		}
	}

	bank.IsClosed = true
	if err := uow.SessionBankRepository().Update(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to update bank: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	uow.EventBus().Publish(events.BankClosedEvent{
		SessionID: sessionID,
		BankID:    bank.ID,
		Closed:    true,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bank, nil
}

func (s *bankService) ReopenBank(ctx context.Context, sessionID int64) (*models.SessionBank, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bank, err := uow.SessionBankRepository().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	if bank == nil {
		return nil, fmt.Errorf("%w: session %d has no bank", ErrNotFound, sessionID)
	}
	if !bank.IsClosed {
		return nil, fmt.Errorf("%w: bank is not closed", ErrState)
	}

	bank.IsClosed = false
	if err := uow.SessionBankRepository().Update(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to update bank: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	uow.EventBus().Publish(events.BankClosedEvent{
		SessionID: sessionID,
		BankID:    bank.ID,
		Closed:    false,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bank, nil
}

// openBank fetches (or lazily creates) the session bank, rejecting
// operations while it is closed
func (s *bankService) openBank(ctx context.Context, uow UnitOfWork, sessionID int64) (*models.SessionBank, error) {
	bank, err := uow.SessionBankRepository().GetOrCreateBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	if bank.IsClosed {
		return nil, fmt.Errorf("%w: bank is closed", ErrState)
	}
	return bank, nil
}

// finish touches the session, publishes the bank event and commits
func (s *bankService) finish(ctx context.Context, uow UnitOfWork, sessionID int64, bank *models.SessionBank, tx *models.SessionBankTransaction) (*models.SessionBank, error) {
	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	uow.EventBus().Publish(events.BankTransactionEvent{
		SessionID:       sessionID,
		BankID:          bank.ID,
		PlayerID:        tx.PlayerID,
		TransactionType: tx.Type,
		Amount:          tx.Amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bank, nil
}
