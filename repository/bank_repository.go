package repository

import (
	"context"
	"fmt"

	"chipledger/database"
	"chipledger/models"
	"github.com/jackc/pgx/v5"
)

// SessionBankRepository implements the service.SessionBankRepository interface
type SessionBankRepository struct {
	q queryable
}

// NewSessionBankRepository creates a new session bank repository
func NewSessionBankRepository(db *database.DB) *SessionBankRepository {
	return &SessionBankRepository{q: db.Pool}
}

// newSessionBankRepositoryWithTx creates a new session bank repository with a transaction
func newSessionBankRepositoryWithTx(tx queryable) *SessionBankRepository {
	return &SessionBankRepository{q: tx}
}

// GetOrCreateBySession returns the session's bank, creating it on first use.
// The UNIQUE constraint on session_id makes the upsert race-free.
func (r *SessionBankRepository) GetOrCreateBySession(ctx context.Context, sessionID int64) (*models.SessionBank, error) {
	query := `
		INSERT INTO session_banks (session_id)
		VALUES ($1)
		ON CONFLICT (session_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to create bank for session %d: %w", sessionID, err)
	}

	bank, err := r.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if bank == nil {
		return nil, fmt.Errorf("bank for session %d missing after upsert", sessionID)
	}

	return bank, nil
}

// GetBySession returns the session's bank with its transactions, or nil
func (r *SessionBankRepository) GetBySession(ctx context.Context, sessionID int64) (*models.SessionBank, error) {
	query := `
		SELECT id, session_id, manager_player_id, is_closed, expected_total, created_at
		FROM session_banks
		WHERE session_id = $1
	`

	var bank models.SessionBank
	err := r.q.QueryRow(ctx, query, sessionID).Scan(
		&bank.ID,
		&bank.SessionID,
		&bank.ManagerPlayerID,
		&bank.IsClosed,
		&bank.ExpectedTotal,
		&bank.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank for session %d: %w", sessionID, err)
	}

	bank.Transactions, err = r.bankTransactions(ctx, bank.ID)
	if err != nil {
		return nil, err
	}

	return &bank, nil
}

// Update updates the bank's mutable fields
func (r *SessionBankRepository) Update(ctx context.Context, bank *models.SessionBank) error {
	query := `
		UPDATE session_banks
		SET manager_player_id = $1, is_closed = $2, expected_total = $3
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query,
		bank.ManagerPlayerID,
		bank.IsClosed,
		bank.ExpectedTotal,
		bank.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bank %d: %w", bank.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bank %d not found", bank.ID)
	}

	return nil
}

// AddTransaction appends a cash movement to the bank
func (r *SessionBankRepository) AddTransaction(ctx context.Context, tx *models.SessionBankTransaction) error {
	query := `
		INSERT INTO bank_transactions (bank_id, player_id, type, amount, note, expense_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.BankID,
		tx.PlayerID,
		tx.Type,
		tx.Amount,
		tx.Note,
		tx.ExpenseID,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add bank transaction for bank %d: %w", tx.BankID, err)
	}

	return nil
}

// DeleteTransactionsByPlayer removes all cash movements linked to a player
func (r *SessionBankRepository) DeleteTransactionsByPlayer(ctx context.Context, playerID int64) error {
	query := `DELETE FROM bank_transactions WHERE player_id = $1`

	if _, err := r.q.Exec(ctx, query, playerID); err != nil {
		return fmt.Errorf("failed to delete bank transactions for player %d: %w", playerID, err)
	}

	return nil
}

func (r *SessionBankRepository) bankTransactions(ctx context.Context, bankID int64) ([]*models.SessionBankTransaction, error) {
	query := `
		SELECT id, bank_id, player_id, type, amount, note, expense_id, created_at
		FROM bank_transactions
		WHERE bank_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank transactions for bank %d: %w", bankID, err)
	}
	defer rows.Close()

	var transactions []*models.SessionBankTransaction
	for rows.Next() {
		var tx models.SessionBankTransaction
		err := rows.Scan(
			&tx.ID,
			&tx.BankID,
			&tx.PlayerID,
			&tx.Type,
			&tx.Amount,
			&tx.Note,
			&tx.ExpenseID,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bank transactions: %w", err)
	}

	return transactions, nil
}
