package models

import (
	"time"
)

// TransferType represents how a settlement transfer is carried out
type TransferType string

const (
	TransferTypeBankToPlayer   TransferType = "bank_to_player"
	TransferTypePlayerToBank   TransferType = "player_to_bank"
	TransferTypePlayerToPlayer TransferType = "player_to_player"
)

// TransferParty identifies one side of a settlement transfer: either a
// specific player or the session bank. The explicit union keeps
// nil-means-bank checks out of the settlement logic.
type TransferParty struct {
	playerID int64
	name     string
	isBank   bool
}

// BankParty returns the party representing the session bank
func BankParty() TransferParty {
	return TransferParty{isBank: true}
}

// PlayerParty returns the party representing a specific player
func PlayerParty(playerID int64, name string) TransferParty {
	return TransferParty{playerID: playerID, name: name}
}

// IsBank checks if the party is the session bank
func (tp TransferParty) IsBank() bool {
	return tp.isBank
}

// PlayerID returns the player ID, or nil for the bank
func (tp TransferParty) PlayerID() *int64 {
	if tp.isBank {
		return nil
	}
	id := tp.playerID
	return &id
}

// Name returns the player's display name, or empty for the bank
func (tp TransferParty) Name() string {
	return tp.name
}

// SettlementTransfer is a persisted record of one proposed cash handoff.
// Exactly one of FromPlayerID/ToPlayerID is nil for bank-mediated legs.
// Completion is toggled independently and never touches ledger balances.
type SettlementTransfer struct {
	ID           int64        `db:"id"`
	SessionID    int64        `db:"session_id"`
	FromPlayerID *int64       `db:"from_player_id"`
	ToPlayerID   *int64       `db:"to_player_id"`
	Amount       int64        `db:"amount"`
	Type         TransferType `db:"type"`
	IsCompleted  bool         `db:"is_completed"`
	CompletedAt  *time.Time   `db:"completed_at"`
	Note         string       `db:"note"`
	CreatedAt    time.Time    `db:"created_at"`
}

// SettlementResult is the immutable output of the settlement engine: the
// per-player balances that were settled and the full ordered transfer plan.
// SnapshotAt carries the session's updated_at at computation time so that
// persisting the plan can detect a ledger mutated in between.
type SettlementResult struct {
	SessionID    int64
	Balances     map[int64]int64
	Transfers    []*SettlementTransfer
	BankCollects int64
	SnapshotAt   time.Time
}
