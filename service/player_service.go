package service

import (
	"context"
	"fmt"
	"strings"

	"chipledger/config"
	"chipledger/events"
	"chipledger/models"
)

type playerService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewPlayerService creates a new player service
func NewPlayerService(uowFactory UnitOfWorkFactory, cfg *config.Config) PlayerService {
	return &playerService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

func (s *playerService) AddPlayer(ctx context.Context, sessionID int64, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name cannot be empty", ErrValidation)
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

	existing, err := uow.PlayerRepository().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	if len(existing) >= s.config.MaxPlayersPerSession {
		return nil, fmt.Errorf("%w: session already has %d players", ErrState, len(existing))
	}

	player := &models.Player{
		SessionID: sessionID,
		Name:      name,
		InGame:    true,
	}
	if err := uow.PlayerRepository().Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return player, nil
}

func (s *playerService) RecordBuyIn(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error) {
	return s.recordPurchase(ctx, sessionID, playerID, chips, models.ChipTransactionTypeBuyIn)
}

func (s *playerService) RecordAddOn(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error) {
	return s.recordPurchase(ctx, sessionID, playerID, chips, models.ChipTransactionTypeAddOn)
}

func (s *playerService) recordPurchase(ctx context.Context, sessionID, playerID, chips int64, txType models.ChipTransactionType) (*models.Player, error) {
	if chips <= 0 {
		return nil, fmt.Errorf("%w: chip amount must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := s.sessionPlayer(ctx, uow, sessionID, playerID)
	if err != nil {
		return nil, err
	}
	if !player.InGame {
		return nil, fmt.Errorf("%w: player %s has already cashed out; use a re-buy", ErrState, player.Name)
	}

	tx := &models.ChipTransaction{
		PlayerID: playerID,
		Type:     txType,
		Amount:   chips,
	}
	if err := uow.PlayerRepository().AddChipTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to add chip transaction: %w", err)
	}
	player.Transactions = append(player.Transactions, tx)

	if err := s.finish(ctx, uow, sessionID, player, txType, chips); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *playerService) RecordCashOut(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error) {
	if chips < 0 {
		return nil, fmt.Errorf("%w: cash-out amount cannot be negative", ErrValidation)
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
	player := detail.PlayerByID(playerID)
	if player == nil {
		return nil, fmt.Errorf("%w: player %d in session %d", ErrNotFound, playerID, sessionID)
	}
	if !player.InGame {
		return nil, fmt.Errorf("%w: player %s has already cashed out", ErrState, player.Name)
	}

	if chips > detail.ChipsInGame() {
		return nil, fmt.Errorf("%w: cash-out of %d chips exceeds the %d chips in play", ErrState, chips, detail.ChipsInGame())
	}

	if chips > 0 {
		tx := &models.ChipTransaction{
			PlayerID: playerID,
			Type:     models.ChipTransactionTypeCashOut,
			Amount:   chips,
		}
		if err := uow.PlayerRepository().AddChipTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to add chip transaction: %w", err)
		}
		player.Transactions = append(player.Transactions, tx)
	}

	player.InGame = false
	if err := uow.PlayerRepository().Update(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if err := s.finish(ctx, uow, sessionID, player, models.ChipTransactionTypeCashOut, chips); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *playerService) Rebuy(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error) {
	if chips <= 0 {
		return nil, fmt.Errorf("%w: re-buy amount must be positive", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	player, err := s.sessionPlayer(ctx, uow, sessionID, playerID)
	if err != nil {
		return nil, err
	}
	if player.InGame {
		return nil, fmt.Errorf("%w: player %s is still in the game", ErrState, player.Name)
	}

	player.InGame = true
	if err := uow.PlayerRepository().Update(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	tx := &models.ChipTransaction{
		PlayerID: playerID,
		Type:     models.ChipTransactionTypeBuyIn,
		Amount:   chips,
	}
	if err := uow.PlayerRepository().AddChipTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to add chip transaction: %w", err)
	}
	player.Transactions = append(player.Transactions, tx)

	if err := s.finish(ctx, uow, sessionID, player, models.ChipTransactionTypeBuyIn, chips); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *playerService) SetRakeback(ctx context.Context, sessionID, playerID int64, getsRakeback bool, amount int64) (*models.Player, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: rakeback cannot be negative", ErrValidation)
	}
	if !getsRakeback && amount != 0 {
		return nil, fmt.Errorf("%w: rakeback amount requires the rakeback flag", ErrValidation)
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
	player := detail.PlayerByID(playerID)
	if player == nil {
		return nil, fmt.Errorf("%w: player %d in session %d", ErrNotFound, playerID, sessionID)
	}

	// Total rakeback can never exceed the rake reservation it is paid from.
	othersRakeback := detail.DistributedRakeback()
	if player.GetsRakeback {
		othersRakeback -= player.Rakeback
	}
	if getsRakeback && othersRakeback+amount > detail.ReservedForRake() {
		return nil, fmt.Errorf("%w: rakeback of %d exceeds the %d reserved for rake", ErrState, othersRakeback+amount, detail.ReservedForRake())
	}

	player.GetsRakeback = getsRakeback
	player.Rakeback = amount
	if err := uow.PlayerRepository().Update(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return player, nil
}

// sessionPlayer loads a player and checks session membership
func (s *playerService) sessionPlayer(ctx context.Context, uow UnitOfWork, sessionID, playerID int64) (*models.Player, error) {
	player, err := uow.PlayerRepository().GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil || player.SessionID != sessionID {
		return nil, fmt.Errorf("%w: player %d in session %d", ErrNotFound, playerID, sessionID)
	}
	return player, nil
}

// finish touches the session, publishes the chip event and commits
func (s *playerService) finish(ctx context.Context, uow UnitOfWork, sessionID int64, player *models.Player, txType models.ChipTransactionType, chips int64) error {
	if err := uow.SessionRepository().Touch(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	uow.EventBus().Publish(events.ChipTransactionEvent{
		SessionID:       sessionID,
		PlayerID:        player.ID,
		PlayerName:      player.Name,
		TransactionType: txType,
		Amount:          chips,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
