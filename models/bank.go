package models

import (
	"time"
)

// BankTransactionType represents the kind of cash movement through the session bank
type BankTransactionType string

const (
	BankTransactionTypeDeposit        BankTransactionType = "deposit"
	BankTransactionTypeWithdrawal     BankTransactionType = "withdrawal"
	BankTransactionTypeExpensePayment BankTransactionType = "expense_payment"
	BankTransactionTypeTipPayment     BankTransactionType = "tip_payment"
)

// SessionBankTransaction represents a single cash movement through the bank.
// A nil PlayerID marks an organizational movement (expense or tip disbursement)
// that belongs to the session rather than to any player.
type SessionBankTransaction struct {
	ID        int64               `db:"id"`
	BankID    int64               `db:"bank_id"`
	PlayerID  *int64              `db:"player_id"`
	Type      BankTransactionType `db:"type"`
	Amount    int64               `db:"amount"`
	Note      string              `db:"note"`
	ExpenseID *int64              `db:"expense_id"`
	CreatedAt time.Time           `db:"created_at"`
}

// SessionBank represents the physical cash pool held by the table operator.
// At most one exists per session, created on first use.
type SessionBank struct {
	ID              int64     `db:"id"`
	SessionID       int64     `db:"session_id"`
	ManagerPlayerID *int64    `db:"manager_player_id"`
	IsClosed        bool      `db:"is_closed"`
	ExpectedTotal   int64     `db:"expected_total"`
	CreatedAt       time.Time `db:"created_at"`

	// Transactions is the ordered list of cash movements, owned by the bank
	Transactions []*SessionBankTransaction
}

// TotalDeposited returns the cash paid into the bank
func (b *SessionBank) TotalDeposited() int64 {
	var total int64
	for _, tx := range b.Transactions {
		if tx.Type == BankTransactionTypeDeposit {
			total += tx.Amount
		}
	}
	return total
}

// TotalWithdrawn returns the cash paid out of the bank, including
// organizational expense and tip disbursements
func (b *SessionBank) TotalWithdrawn() int64 {
	var total int64
	for _, tx := range b.Transactions {
		switch tx.Type {
		case BankTransactionTypeWithdrawal, BankTransactionTypeExpensePayment, BankTransactionTypeTipPayment:
			total += tx.Amount
		case BankTransactionTypeDeposit:
			// inbound
		}
	}
	return total
}

// NetBalance returns the cash the bank currently holds
func (b *SessionBank) NetBalance() int64 {
	return b.TotalDeposited() - b.TotalWithdrawn()
}

// PlayerContributions returns the given player's own deposits and withdrawals
func (b *SessionBank) PlayerContributions(playerID int64) (deposited int64, withdrawn int64) {
	for _, tx := range b.Transactions {
		if tx.PlayerID == nil || *tx.PlayerID != playerID {
			continue
		}
		if tx.Type == BankTransactionTypeDeposit {
			deposited += tx.Amount
		} else {
			withdrawn += tx.Amount
		}
	}
	return deposited, withdrawn
}

// OrganizationalSpend returns cash disbursed with no associated player
func (b *SessionBank) OrganizationalSpend() int64 {
	var total int64
	for _, tx := range b.Transactions {
		if tx.PlayerID != nil {
			continue
		}
		switch tx.Type {
		case BankTransactionTypeWithdrawal, BankTransactionTypeExpensePayment, BankTransactionTypeTipPayment:
			total += tx.Amount
		case BankTransactionTypeDeposit:
			// organizational deposits do not exist; deposits always carry a player
		}
	}
	return total
}
