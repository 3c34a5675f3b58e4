package models

import (
	"time"
)

// ChipTransactionType represents the kind of chip movement for a player
type ChipTransactionType string

const (
	ChipTransactionTypeBuyIn   ChipTransactionType = "buy_in"
	ChipTransactionTypeAddOn   ChipTransactionType = "add_on"
	ChipTransactionTypeCashOut ChipTransactionType = "cash_out"
)

// ChipTransaction represents a single chip purchase or cash-out by a player
type ChipTransaction struct {
	ID        int64               `db:"id"`
	PlayerID  int64               `db:"player_id"`
	Type      ChipTransactionType `db:"type"`
	Amount    int64               `db:"amount"`
	CreatedAt time.Time           `db:"created_at"`
}

// Player represents a participant in a poker session
type Player struct {
	ID           int64     `db:"id"`
	SessionID    int64     `db:"session_id"`
	Name         string    `db:"name"`
	InGame       bool      `db:"in_game"`
	GetsRakeback bool      `db:"gets_rakeback"`
	Rakeback     int64     `db:"rakeback"`
	CreatedAt    time.Time `db:"created_at"`

	// Transactions is the ordered list of chip movements, loaded with the player
	Transactions []*ChipTransaction
}

// ChipBuyIn returns the total chips bought by the player (buy-ins plus add-ons)
func (p *Player) ChipBuyIn() int64 {
	var total int64
	for _, tx := range p.Transactions {
		switch tx.Type {
		case ChipTransactionTypeBuyIn, ChipTransactionTypeAddOn:
			total += tx.Amount
		case ChipTransactionTypeCashOut:
			// not a purchase
		}
	}
	return total
}

// ChipCashOut returns the total chips the player has converted back
func (p *Player) ChipCashOut() int64 {
	var total int64
	for _, tx := range p.Transactions {
		if tx.Type == ChipTransactionTypeCashOut {
			total += tx.Amount
		}
	}
	return total
}

// ChipProfit returns the player's chip result (cash-out minus buy-in)
func (p *Player) ChipProfit() int64 {
	return p.ChipCashOut() - p.ChipBuyIn()
}

// HasFinished checks if the player has left the game and can be settled
func (p *Player) HasFinished() bool {
	return !p.InGame
}
