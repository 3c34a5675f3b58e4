package repository

import (
	"context"
	"fmt"

	"chipledger/database"
	"chipledger/models"
	"github.com/jackc/pgx/v5"
)

// SessionRepository implements the service.SessionRepository interface
type SessionRepository struct {
	q queryable
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{q: db.Pool}
}

// newSessionRepositoryWithTx creates a new session repository with a transaction
func newSessionRepositoryWithTx(tx queryable) *SessionRepository {
	return &SessionRepository{q: tx}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (title, location, game_type, chips_to_cash_ratio,
			small_blind, big_blind, ante, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, rake_amount, tips_amount, tips_paid_from_bank, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		session.Title,
		session.Location,
		session.GameType,
		session.ChipsToCashRatio,
		session.SmallBlind,
		session.BigBlind,
		session.Ante,
		session.StartedAt,
	).Scan(
		&session.ID,
		&session.RakeAmount,
		&session.TipsAmount,
		&session.TipsPaidFromBank,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `
		SELECT id, title, location, game_type, chips_to_cash_ratio,
			small_blind, big_blind, ante, rake_amount, tips_amount,
			tips_paid_from_bank, started_at, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	session, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}

	return session, nil
}

// GetDetailByID retrieves the session with its players, expenses and bank as
// one snapshot. All reads run on the same queryable, so inside a unit of work
// they see a single consistent transaction state.
func (r *SessionRepository) GetDetailByID(ctx context.Context, id int64) (*models.SessionDetail, error) {
	session, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	detail := &models.SessionDetail{Session: session}

	playerRepo := &PlayerRepository{q: r.q}
	detail.Players, err = playerRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, err
	}

	expenseRepo := &ExpenseRepository{q: r.q}
	detail.Expenses, err = expenseRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, err
	}

	bankRepo := &SessionBankRepository{q: r.q}
	detail.Bank, err = bankRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// Update updates a session's mutable fields and bumps updated_at
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	query := `
		UPDATE sessions
		SET title = $1, location = $2, game_type = $3, chips_to_cash_ratio = $4,
			small_blind = $5, big_blind = $6, ante = $7, rake_amount = $8,
			tips_amount = $9, tips_paid_from_bank = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		session.Title,
		session.Location,
		session.GameType,
		session.ChipsToCashRatio,
		session.SmallBlind,
		session.BigBlind,
		session.Ante,
		session.RakeAmount,
		session.TipsAmount,
		session.TipsPaidFromBank,
		session.ID,
	).Scan(&session.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("session %d not found", session.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", session.ID, err)
	}

	return nil
}

// Touch bumps the session's updated_at so settlement snapshots go stale
func (r *SessionRepository) Touch(ctx context.Context, id int64) error {
	query := `
		UPDATE sessions
		SET updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch session %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("session %d not found", id)
	}

	return nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.Title,
		&session.Location,
		&session.GameType,
		&session.ChipsToCashRatio,
		&session.SmallBlind,
		&session.BigBlind,
		&session.Ante,
		&session.RakeAmount,
		&session.TipsAmount,
		&session.TipsPaidFromBank,
		&session.StartedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
