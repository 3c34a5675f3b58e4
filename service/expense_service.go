package service

import (
	"context"
	"fmt"

	"chipledger/events"
	"chipledger/models"
)

type expenseService struct {
	uowFactory UnitOfWorkFactory
}

// NewExpenseService creates a new expense service
func NewExpenseService(uowFactory UnitOfWorkFactory) ExpenseService {
	return &expenseService{
		uowFactory: uowFactory,
	}
}

func (s *expenseService) AddExpense(ctx context.Context, sessionID, amount int64, note string, payerID *int64) (*models.Expense, error) {
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

	if payerID != nil {
		payer, err := uow.PlayerRepository().GetByID(ctx, *payerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get payer: %w", err)
		}
		if payer == nil || payer.SessionID != sessionID {
			return nil, fmt.Errorf("%w: payer %d in session %d", ErrNotFound, *payerID, sessionID)
		}
	}

	expense := &models.Expense{
		SessionID: sessionID,
		Amount:    amount,
		Note:      note,
		PayerID:   payerID,
	}
	if err := uow.ExpenseRepository().Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	uow.EventBus().Publish(events.ExpenseAddedEvent{
		SessionID: sessionID,
		ExpenseID: expense.ID,
		Amount:    expense.Amount,
		PayerID:   payerID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return expense, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, sessionID, expenseID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expense, err := uow.ExpenseRepository().GetByID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("failed to get expense: %w", err)
	}
	if expense == nil || expense.SessionID != sessionID {
		return fmt.Errorf("%w: expense %d in session %d", ErrNotFound, expenseID, sessionID)
	}

	if err := uow.ExpenseRepository().Delete(ctx, expenseID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	uow.EventBus().Publish(events.ExpenseDeletedEvent{
		SessionID: sessionID,
		ExpenseID: expenseID,
		Amount:    expense.Amount,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *expenseService) DistributeEqual(ctx context.Context, sessionID, expenseID int64, playerIDs []int64, includeRakePool bool) (*models.Expense, error) {
	participants := len(playerIDs)
	if includeRakePool {
		participants++
	}
	if participants == 0 {
		return nil, fmt.Errorf("%w: at least one participant is required", ErrValidation)
	}

	// Even split with the remainder handed out one unit at a time, in the
	// caller's order. The rake pool is always the last participant.
	shares := make([]ManualShare, 0, participants)
	for _, id := range playerIDs {
		pid := id
		shares = append(shares, ManualShare{PlayerID: &pid})
	}
	if includeRakePool {
		shares = append(shares, ManualShare{PlayerID: nil})
	}

	return s.distribute(ctx, sessionID, expenseID, func(expense *models.Expense) ([]ManualShare, error) {
		base := expense.Amount / int64(participants)
		remainder := expense.Amount % int64(participants)
		for i := range shares {
			shares[i].Amount = base
			if int64(i) < remainder {
				shares[i].Amount++
			}
		}
		return shares, nil
	})
}

func (s *expenseService) DistributeManual(ctx context.Context, sessionID, expenseID int64, shares []ManualShare) (*models.Expense, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: at least one share is required", ErrValidation)
	}

	return s.distribute(ctx, sessionID, expenseID, func(expense *models.Expense) ([]ManualShare, error) {
		var total int64
		rakePoolSeen := false
		for _, share := range shares {
			if share.Amount < 0 {
				return nil, fmt.Errorf("%w: shares must be non-negative", ErrValidation)
			}
			if share.PlayerID == nil {
				if rakePoolSeen {
					return nil, fmt.Errorf("%w: the rake pool may appear at most once", ErrValidation)
				}
				rakePoolSeen = true
			}
			total += share.Amount
		}
		if total != expense.Amount {
			return nil, fmt.Errorf("%w: shares sum to %d, expense amount is %d", ErrValidation, total, expense.Amount)
		}
		return shares, nil
	})
}

// distribute loads the expense, lets split produce the final share list,
// validates it against session state and persists the new distribution
func (s *expenseService) distribute(ctx context.Context, sessionID, expenseID int64, split func(*models.Expense) ([]ManualShare, error)) (*models.Expense, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	detail, err := uow.SessionRepository().GetDetailByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session detail: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	var expense *models.Expense
	for _, e := range detail.Expenses {
		if e.ID == expenseID {
			expense = e
			break
		}
	}
	if expense == nil {
		return nil, fmt.Errorf("%w: expense %d in session %d", ErrNotFound, expenseID, sessionID)
	}

	shares, err := split(expense)
	if err != nil {
		return nil, err
	}

	// Player shares become distribution rows; the rake pool's share is kept
	// on the expense itself.
	var rakeShare int64
	seen := make(map[int64]bool, len(shares))
	distributions := make([]*models.ExpenseDistribution, 0, len(shares))
	for _, share := range shares {
		if share.PlayerID == nil {
			rakeShare = share.Amount
			continue
		}
		if detail.PlayerByID(*share.PlayerID) == nil {
			return nil, fmt.Errorf("%w: player %d in session %d", ErrNotFound, *share.PlayerID, sessionID)
		}
		if seen[*share.PlayerID] {
			return nil, fmt.Errorf("%w: player %d appears more than once", ErrValidation, *share.PlayerID)
		}
		seen[*share.PlayerID] = true
		distributions = append(distributions, &models.ExpenseDistribution{
			ExpenseID: expenseID,
			PlayerID:  *share.PlayerID,
			Amount:    share.Amount,
		})
	}

	// The rake pool can only absorb what the reserved rake has left after
	// rakeback and the shares already assigned to other expenses.
	if rakeShare > 0 {
		available := detail.AvailableRakeForExpenses() + expense.PaidFromRake
		if rakeShare > available {
			return nil, fmt.Errorf("%w: rake pool share of %d exceeds the %d available", ErrState, rakeShare, available)
		}
	}

	if err := uow.ExpenseRepository().ReplaceDistributions(ctx, expenseID, distributions); err != nil {
		return nil, fmt.Errorf("failed to replace distributions: %w", err)
	}

	expense.Distributions = distributions
	expense.PaidFromRake = rakeShare
	if err := uow.ExpenseRepository().Update(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	uow.EventBus().Publish(events.ExpenseDistributedEvent{
		SessionID:    sessionID,
		ExpenseID:    expenseID,
		Amount:       expense.Amount,
		PaidFromRake: rakeShare,
		Participants: len(shares),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return expense, nil
}
