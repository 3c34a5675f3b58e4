package repository

import (
	"context"
	"fmt"

	"chipledger/database"
	"chipledger/models"
	"github.com/jackc/pgx/v5"
)

// PlayerRepository implements the service.PlayerRepository interface
type PlayerRepository struct {
	q queryable
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *database.DB) *PlayerRepository {
	return &PlayerRepository{q: db.Pool}
}

// newPlayerRepositoryWithTx creates a new player repository with a transaction
func newPlayerRepositoryWithTx(tx queryable) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

// Create creates a new player
func (r *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (session_id, name, in_game, gets_rakeback, rakeback)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		player.SessionID,
		player.Name,
		player.InGame,
		player.GetsRakeback,
		player.Rakeback,
	).Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player in session %d: %w", player.SessionID, err)
	}

	return nil
}

// GetByID retrieves a player with their chip transactions
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	query := `
		SELECT id, session_id, name, in_game, gets_rakeback, rakeback, created_at
		FROM players
		WHERE id = $1
	`

	var player models.Player
	err := r.q.QueryRow(ctx, query, id).Scan(
		&player.ID,
		&player.SessionID,
		&player.Name,
		&player.InGame,
		&player.GetsRakeback,
		&player.Rakeback,
		&player.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}

	player.Transactions, err = r.chipTransactions(ctx, []int64{id})
	if err != nil {
		return nil, err
	}

	return &player, nil
}

// GetBySession returns all players of a session with their chip transactions,
// in creation order
func (r *PlayerRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Player, error) {
	query := `
		SELECT id, session_id, name, in_game, gets_rakeback, rakeback, created_at
		FROM players
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get players for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var players []*models.Player
	var ids []int64
	for rows.Next() {
		var player models.Player
		err := rows.Scan(
			&player.ID,
			&player.SessionID,
			&player.Name,
			&player.InGame,
			&player.GetsRakeback,
			&player.Rakeback,
			&player.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &player)
		ids = append(ids, player.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}

	if len(players) == 0 {
		return players, nil
	}

	transactions, err := r.chipTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	byPlayer := make(map[int64][]*models.ChipTransaction, len(players))
	for _, tx := range transactions {
		byPlayer[tx.PlayerID] = append(byPlayer[tx.PlayerID], tx)
	}
	for _, p := range players {
		p.Transactions = byPlayer[p.ID]
	}

	return players, nil
}

// Update updates a player's mutable fields
func (r *PlayerRepository) Update(ctx context.Context, player *models.Player) error {
	query := `
		UPDATE players
		SET name = $1, in_game = $2, gets_rakeback = $3, rakeback = $4
		WHERE id = $5
	`

	result, err := r.q.Exec(ctx, query,
		player.Name,
		player.InGame,
		player.GetsRakeback,
		player.Rakeback,
		player.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", player.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("player %d not found", player.ID)
	}

	return nil
}

// Delete deletes a player
func (r *PlayerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("player %d not found", id)
	}

	return nil
}

// AddChipTransaction appends a chip movement for a player
func (r *PlayerRepository) AddChipTransaction(ctx context.Context, tx *models.ChipTransaction) error {
	query := `
		INSERT INTO chip_transactions (player_id, type, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, tx.PlayerID, tx.Type, tx.Amount).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add chip transaction for player %d: %w", tx.PlayerID, err)
	}

	return nil
}

// DeleteChipTransactionsByPlayer removes all chip movements of a player
func (r *PlayerRepository) DeleteChipTransactionsByPlayer(ctx context.Context, playerID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM chip_transactions WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete chip transactions for player %d: %w", playerID, err)
	}

	return nil
}

func (r *PlayerRepository) chipTransactions(ctx context.Context, playerIDs []int64) ([]*models.ChipTransaction, error) {
	query := `
		SELECT id, player_id, type, amount, created_at
		FROM chip_transactions
		WHERE player_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get chip transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.ChipTransaction
	for rows.Next() {
		var tx models.ChipTransaction
		err := rows.Scan(&tx.ID, &tx.PlayerID, &tx.Type, &tx.Amount, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chip transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chip transactions: %w", err)
	}

	return transactions, nil
}
