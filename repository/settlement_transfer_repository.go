package repository

import (
	"context"
	"fmt"

	"chipledger/database"
	"chipledger/models"
	"github.com/jackc/pgx/v5"
)

// SettlementTransferRepository implements the service.SettlementTransferRepository interface
type SettlementTransferRepository struct {
	q queryable
}

// NewSettlementTransferRepository creates a new settlement transfer repository
func NewSettlementTransferRepository(db *database.DB) *SettlementTransferRepository {
	return &SettlementTransferRepository{q: db.Pool}
}

// newSettlementTransferRepositoryWithTx creates a new settlement transfer repository with a transaction
func newSettlementTransferRepositoryWithTx(tx queryable) *SettlementTransferRepository {
	return &SettlementTransferRepository{q: tx}
}

// Create persists a proposed transfer
func (r *SettlementTransferRepository) Create(ctx context.Context, transfer *models.SettlementTransfer) error {
	query := `
		INSERT INTO settlement_transfers (session_id, from_player_id, to_player_id,
			amount, type, is_completed, completed_at, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		transfer.SessionID,
		transfer.FromPlayerID,
		transfer.ToPlayerID,
		transfer.Amount,
		transfer.Type,
		transfer.IsCompleted,
		transfer.CompletedAt,
		transfer.Note,
	).Scan(&transfer.ID, &transfer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create settlement transfer in session %d: %w", transfer.SessionID, err)
	}

	return nil
}

// GetByID retrieves a transfer by its ID
func (r *SettlementTransferRepository) GetByID(ctx context.Context, id int64) (*models.SettlementTransfer, error) {
	query := `
		SELECT id, session_id, from_player_id, to_player_id, amount, type,
			is_completed, completed_at, note, created_at
		FROM settlement_transfers
		WHERE id = $1
	`

	transfer, err := scanSettlementTransfer(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement transfer %d: %w", id, err)
	}

	return transfer, nil
}

// GetBySession returns all transfers of a session, in creation order
func (r *SettlementTransferRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.SettlementTransfer, error) {
	query := `
		SELECT id, session_id, from_player_id, to_player_id, amount, type,
			is_completed, completed_at, note, created_at
		FROM settlement_transfers
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement transfers for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var transfers []*models.SettlementTransfer
	for rows.Next() {
		transfer, err := scanSettlementTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement transfers: %w", err)
	}

	return transfers, nil
}

// Update updates a transfer's completion state
func (r *SettlementTransferRepository) Update(ctx context.Context, transfer *models.SettlementTransfer) error {
	query := `
		UPDATE settlement_transfers
		SET is_completed = $1, completed_at = $2, note = $3
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query,
		transfer.IsCompleted,
		transfer.CompletedAt,
		transfer.Note,
		transfer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement transfer %d: %w", transfer.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("settlement transfer %d not found", transfer.ID)
	}

	return nil
}

// DeleteIncompleteBySession drops not-yet-completed transfers so a recomputed
// plan can replace them; completed ones are a record of cash that moved
func (r *SettlementTransferRepository) DeleteIncompleteBySession(ctx context.Context, sessionID int64) error {
	query := `
		DELETE FROM settlement_transfers
		WHERE session_id = $1 AND is_completed = FALSE
	`

	_, err := r.q.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete incomplete transfers for session %d: %w", sessionID, err)
	}

	return nil
}

func scanSettlementTransfer(row pgx.Row) (*models.SettlementTransfer, error) {
	var transfer models.SettlementTransfer
	err := row.Scan(
		&transfer.ID,
		&transfer.SessionID,
		&transfer.FromPlayerID,
		&transfer.ToPlayerID,
		&transfer.Amount,
		&transfer.Type,
		&transfer.IsCompleted,
		&transfer.CompletedAt,
		&transfer.Note,
		&transfer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}
