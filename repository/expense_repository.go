package repository

import (
	"context"
	"fmt"

	"chipledger/database"
	"chipledger/models"
	"github.com/jackc/pgx/v5"
)

// ExpenseRepository implements the service.ExpenseRepository interface
type ExpenseRepository struct {
	q queryable
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *database.DB) *ExpenseRepository {
	return &ExpenseRepository{q: db.Pool}
}

// newExpenseRepositoryWithTx creates a new expense repository with a transaction
func newExpenseRepositoryWithTx(tx queryable) *ExpenseRepository {
	return &ExpenseRepository{q: tx}
}

// Create creates a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	query := `
		INSERT INTO expenses (session_id, amount, note, payer_id, paid_from_rake, paid_from_bank)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		expense.SessionID,
		expense.Amount,
		expense.Note,
		expense.PayerID,
		expense.PaidFromRake,
		expense.PaidFromBank,
	).Scan(&expense.ID, &expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense in session %d: %w", expense.SessionID, err)
	}

	return nil
}

// GetByID retrieves an expense with its distributions
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	query := `
		SELECT id, session_id, amount, note, payer_id, paid_from_rake, paid_from_bank, created_at
		FROM expenses
		WHERE id = $1
	`

	var expense models.Expense
	err := r.q.QueryRow(ctx, query, id).Scan(
		&expense.ID,
		&expense.SessionID,
		&expense.Amount,
		&expense.Note,
		&expense.PayerID,
		&expense.PaidFromRake,
		&expense.PaidFromBank,
		&expense.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense %d: %w", id, err)
	}

	expense.Distributions, err = r.distributions(ctx, []int64{id})
	if err != nil {
		return nil, err
	}

	return &expense, nil
}

// GetBySession returns all expenses of a session with their distributions,
// in creation order
func (r *ExpenseRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Expense, error) {
	query := `
		SELECT id, session_id, amount, note, payer_id, paid_from_rake, paid_from_bank, created_at
		FROM expenses
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	var ids []int64
	for rows.Next() {
		var expense models.Expense
		err := rows.Scan(
			&expense.ID,
			&expense.SessionID,
			&expense.Amount,
			&expense.Note,
			&expense.PayerID,
			&expense.PaidFromRake,
			&expense.PaidFromBank,
			&expense.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, &expense)
		ids = append(ids, expense.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if len(expenses) == 0 {
		return expenses, nil
	}

	distributions, err := r.distributions(ctx, ids)
	if err != nil {
		return nil, err
	}
	byExpense := make(map[int64][]*models.ExpenseDistribution, len(expenses))
	for _, d := range distributions {
		byExpense[d.ExpenseID] = append(byExpense[d.ExpenseID], d)
	}
	for _, e := range expenses {
		e.Distributions = byExpense[e.ID]
	}

	return expenses, nil
}

// Update updates an expense's mutable fields
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	query := `
		UPDATE expenses
		SET amount = $1, note = $2, payer_id = $3, paid_from_rake = $4, paid_from_bank = $5
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		expense.Amount,
		expense.Note,
		expense.PayerID,
		expense.PaidFromRake,
		expense.PaidFromBank,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense %d: %w", expense.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("expense %d not found", expense.ID)
	}

	return nil
}

// Delete deletes an expense; its distributions follow via the FK cascade
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("expense %d not found", id)
	}

	return nil
}

// ReplaceDistributions atomically swaps the expense's distribution list
func (r *ExpenseRepository) ReplaceDistributions(ctx context.Context, expenseID int64, distributions []*models.ExpenseDistribution) error {
	_, err := r.q.Exec(ctx, `DELETE FROM expense_distributions WHERE expense_id = $1`, expenseID)
	if err != nil {
		return fmt.Errorf("failed to clear distributions for expense %d: %w", expenseID, err)
	}

	query := `
		INSERT INTO expense_distributions (expense_id, player_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	for _, d := range distributions {
		err := r.q.QueryRow(ctx, query, expenseID, d.PlayerID, d.Amount).Scan(&d.ID, &d.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create distribution for expense %d: %w", expenseID, err)
		}
		d.ExpenseID = expenseID
	}

	return nil
}

// DeleteDistributionsByPlayer removes a player's shares across all expenses
func (r *ExpenseRepository) DeleteDistributionsByPlayer(ctx context.Context, playerID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM expense_distributions WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete distributions for player %d: %w", playerID, err)
	}

	return nil
}

// ClearPayer nullifies the payer reference on expenses fronted by a player
func (r *ExpenseRepository) ClearPayer(ctx context.Context, playerID int64) error {
	_, err := r.q.Exec(ctx, `UPDATE expenses SET payer_id = NULL WHERE payer_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("failed to clear payer %d: %w", playerID, err)
	}

	return nil
}

func (r *ExpenseRepository) distributions(ctx context.Context, expenseIDs []int64) ([]*models.ExpenseDistribution, error) {
	query := `
		SELECT id, expense_id, player_id, amount, created_at
		FROM expense_distributions
		WHERE expense_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, expenseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense distributions: %w", err)
	}
	defer rows.Close()

	var distributions []*models.ExpenseDistribution
	for rows.Next() {
		var d models.ExpenseDistribution
		err := rows.Scan(&d.ID, &d.ExpenseID, &d.PlayerID, &d.Amount, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense distribution: %w", err)
		}
		distributions = append(distributions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense distributions: %w", err)
	}

	return distributions, nil
}
