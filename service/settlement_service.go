package service

import (
	"context"
	"fmt"
	"time"

	"chipledger/events"
	"chipledger/models"

	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
	}
}

func (s *settlementService) CalculateSettlement(ctx context.Context, sessionID int64) (*models.SettlementResult, error) {
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

	result, err := BuildSettlementPlan(detail)
	if err != nil {
		return nil, err
	}
	result.SnapshotAt = detail.Session.UpdatedAt

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func (s *settlementService) SaveTransfers(ctx context.Context, result *models.SettlementResult) ([]*models.SettlementTransfer, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: no settlement result", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByID(ctx, result.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, result.SessionID)
	}

	// A plan computed against a snapshot that has since been mutated would
	// persist transfers for balances that no longer exist.
	if session.UpdatedAt.After(result.SnapshotAt) {
		return nil, fmt.Errorf("%w: session was modified after the plan was computed, recalculate first", ErrState)
	}

	if err := uow.SettlementTransferRepository().DeleteIncompleteBySession(ctx, result.SessionID); err != nil {
		return nil, fmt.Errorf("failed to clear stale transfers: %w", err)
	}

	saved := make([]*models.SettlementTransfer, 0, len(result.Transfers))
	for _, t := range result.Transfers {
		transfer := &models.SettlementTransfer{
			SessionID:    t.SessionID,
			FromPlayerID: t.FromPlayerID,
			ToPlayerID:   t.ToPlayerID,
			Amount:       t.Amount,
			Type:         t.Type,
			Note:         t.Note,
		}
		if err := uow.SettlementTransferRepository().Create(ctx, transfer); err != nil {
			return nil, fmt.Errorf("failed to create transfer: %w", err)
		}
		saved = append(saved, transfer)
	}

	// The bank now expects the house take from losing players.
	bank, err := uow.SessionBankRepository().GetOrCreateBySession(ctx, result.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	bank.ExpectedTotal = result.BankCollects
	if err := uow.SessionBankRepository().Update(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to update bank: %w", err)
	}

	uow.EventBus().Publish(events.SettlementSavedEvent{
		SessionID:     result.SessionID,
		TransferCount: len(saved),
		BankCollects:  result.BankCollects,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Infof("Saved %d settlement transfers for session %d", len(saved), result.SessionID)
	return saved, nil
}

func (s *settlementService) SetTransferCompleted(ctx context.Context, transferID int64, completed bool) (*models.SettlementTransfer, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transfer, err := uow.SettlementTransferRepository().GetByID(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: transfer %d", ErrNotFound, transferID)
	}

	transfer.IsCompleted = completed
	if completed {
		now := time.Now().UTC()
		transfer.CompletedAt = &now
	} else {
		transfer.CompletedAt = nil
	}

	if err := uow.SettlementTransferRepository().Update(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to update transfer: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transfer, nil
}
