package models

import (
	"time"
)

// Expense represents a shared cost incurred during a session (food, venue, etc.)
type Expense struct {
	ID           int64     `db:"id"`
	SessionID    int64     `db:"session_id"`
	Amount       int64     `db:"amount"`
	Note         string    `db:"note"`
	PayerID      *int64    `db:"payer_id"`
	PaidFromRake int64     `db:"paid_from_rake"`
	PaidFromBank int64     `db:"paid_from_bank"`
	CreatedAt    time.Time `db:"created_at"`

	// Distributions is the ordered list of per-player shares, owned by the expense
	Distributions []*ExpenseDistribution
}

// ExpenseDistribution represents one player's share of an expense
type ExpenseDistribution struct {
	ID        int64     `db:"id"`
	ExpenseID int64     `db:"expense_id"`
	PlayerID  int64     `db:"player_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// DistributedTotal returns the sum of all per-player shares
func (e *Expense) DistributedTotal() int64 {
	var total int64
	for _, d := range e.Distributions {
		total += d.Amount
	}
	return total
}

// IsFullyDistributed checks if the player shares plus the rake share cover
// the expense amount exactly
func (e *Expense) IsFullyDistributed() bool {
	return e.DistributedTotal()+e.PaidFromRake == e.Amount
}

// IsFullyPaid checks if the bank has reimbursed the expense in full
func (e *Expense) IsFullyPaid() bool {
	return e.PaidFromBank >= e.Amount
}

// ShareFor returns the share owed by the given player toward this expense
func (e *Expense) ShareFor(playerID int64) int64 {
	var total int64
	for _, d := range e.Distributions {
		if d.PlayerID == playerID {
			total += d.Amount
		}
	}
	return total
}
