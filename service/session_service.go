package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chipledger/config"
	"chipledger/models"
)

// CreateSessionParams carries the configuration for a new session
type CreateSessionParams struct {
	Title            string
	Location         string
	GameType         string
	ChipsToCashRatio int64
	SmallBlind       int64
	BigBlind         int64
	Ante             int64
	StartedAt        time.Time
}

type sessionService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewSessionService creates a new session service
func NewSessionService(uowFactory UnitOfWorkFactory, cfg *config.Config) SessionService {
	return &sessionService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, params CreateSessionParams) (*models.Session, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("%w: session title cannot be empty", ErrValidation)
	}
	if params.ChipsToCashRatio == 0 {
		params.ChipsToCashRatio = s.config.DefaultChipsToCashRatio
	}
	if params.ChipsToCashRatio < 1 {
		return nil, fmt.Errorf("%w: chips-to-cash ratio must be at least 1", ErrValidation)
	}
	if params.SmallBlind < 0 || params.BigBlind < 0 || params.Ante < 0 {
		return nil, fmt.Errorf("%w: blinds and ante cannot be negative", ErrValidation)
	}
	if params.SmallBlind > params.BigBlind {
		return nil, fmt.Errorf("%w: small blind %d exceeds big blind %d", ErrValidation, params.SmallBlind, params.BigBlind)
	}
	if params.StartedAt.IsZero() {
		params.StartedAt = time.Now()
	}
	if params.GameType == "" {
		params.GameType = "NLH"
	}

	session := &models.Session{
		Title:            strings.TrimSpace(params.Title),
		Location:         params.Location,
		GameType:         params.GameType,
		ChipsToCashRatio: params.ChipsToCashRatio,
		SmallBlind:       params.SmallBlind,
		BigBlind:         params.BigBlind,
		Ante:             params.Ante,
		StartedAt:        params.StartedAt,
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

func (s *sessionService) GetSessionDetail(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
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

	return detail, nil
}

func (s *sessionService) SetRakeAndTips(ctx context.Context, sessionID int64, rakeChips, tipsChips int64) (*models.Session, error) {
	if rakeChips < 0 || tipsChips < 0 {
		return nil, fmt.Errorf("%w: rake and tips cannot be negative", ErrValidation)
	}

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

	// The carve-out cannot exceed what is physically on the table.
	available := detail.TotalChipsBought() - detail.TotalChipsCashedOut()
	if rakeChips+tipsChips > available {
		return nil, fmt.Errorf("%w: rake and tips of %d chips exceed the %d chips in play", ErrState, rakeChips+tipsChips, available)
	}

	detail.Session.RakeAmount = rakeChips
	detail.Session.TipsAmount = tipsChips
	if err := uow.SessionRepository().Update(ctx, detail.Session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return detail.Session, nil
}

func (s *sessionService) RemovePlayer(ctx context.Context, sessionID int64, playerID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || player.SessionID != sessionID {
		return fmt.Errorf("%w: player %d in session %d", ErrNotFound, playerID, sessionID)
	}

	// Explicit cleanup cascade, in the order the contract documents it:
	// the player's chip movements, expense shares and bank movements go
	// away, expenses the player fronted stay but lose their payer
	// reference. Bank transactions are deleted rather than orphaned so the
	// bank's totals never count cash the ledger can no longer attribute.
	if err := uow.PlayerRepository().DeleteChipTransactionsByPlayer(ctx, playerID); err != nil {
		return fmt.Errorf("failed to delete chip transactions: %w", err)
	}
	if err := uow.ExpenseRepository().DeleteDistributionsByPlayer(ctx, playerID); err != nil {
		return fmt.Errorf("failed to delete expense distributions: %w", err)
	}
	if err := uow.ExpenseRepository().ClearPayer(ctx, playerID); err != nil {
		return fmt.Errorf("failed to clear expense payer references: %w", err)
	}
	if err := uow.SessionBankRepository().DeleteTransactionsByPlayer(ctx, playerID); err != nil {
		return fmt.Errorf("failed to delete bank transactions: %w", err)
	}
	if err := uow.PlayerRepository().Delete(ctx, playerID); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
