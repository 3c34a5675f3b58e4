package models

import (
	"time"
)

// Session represents a single home poker session being tracked
type Session struct {
	ID               int64     `db:"id"`
	Title            string    `db:"title"`
	Location         string    `db:"location"`
	GameType         string    `db:"game_type"`
	ChipsToCashRatio int64     `db:"chips_to_cash_ratio"`
	SmallBlind       int64     `db:"small_blind"`
	BigBlind         int64     `db:"big_blind"`
	Ante             int64     `db:"ante"`
	RakeAmount       int64     `db:"rake_amount"`
	TipsAmount       int64     `db:"tips_amount"`
	TipsPaidFromBank int64     `db:"tips_paid_from_bank"`
	StartedAt        time.Time `db:"started_at"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// SessionDetail combines a session with its players, expenses and bank.
// It is the consistent snapshot all pure derivations and the settlement
// engine compute over; nothing on it performs I/O.
type SessionDetail struct {
	Session  *Session
	Players  []*Player
	Expenses []*Expense
	Bank     *SessionBank
}

// PlayerByID returns the player with the given ID, or nil
func (sd *SessionDetail) PlayerByID(playerID int64) *Player {
	for _, p := range sd.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// TotalChipsBought returns the chips purchased across all players
func (sd *SessionDetail) TotalChipsBought() int64 {
	var total int64
	for _, p := range sd.Players {
		total += p.ChipBuyIn()
	}
	return total
}

// TotalChipsCashedOut returns the chips cashed out across all players
func (sd *SessionDetail) TotalChipsCashedOut() int64 {
	var total int64
	for _, p := range sd.Players {
		total += p.ChipCashOut()
	}
	return total
}

// ChipsInGame returns the chips still on the table: everything bought minus
// everything cashed out, rake and tips
func (sd *SessionDetail) ChipsInGame() int64 {
	return sd.TotalChipsBought() - sd.TotalChipsCashedOut() - sd.Session.RakeAmount - sd.Session.TipsAmount
}

// ReservedForRake returns the cash value reserved to cover the rake
func (sd *SessionDetail) ReservedForRake() int64 {
	return sd.Session.RakeAmount * sd.Session.ChipsToCashRatio
}

// ReservedForTips returns the cash value reserved to cover tips
func (sd *SessionDetail) ReservedForTips() int64 {
	return sd.Session.TipsAmount * sd.Session.ChipsToCashRatio
}

// TotalReserved returns the combined rake and tips reservation
func (sd *SessionDetail) TotalReserved() int64 {
	return sd.ReservedForRake() + sd.ReservedForTips()
}

// DistributedRakeback returns the cash already promised back to rakeback players
func (sd *SessionDetail) DistributedRakeback() int64 {
	var total int64
	for _, p := range sd.Players {
		if p.GetsRakeback {
			total += p.Rakeback
		}
	}
	return total
}

// AvailableRakeForExpenses returns how much of the rake reservation can still
// cover shared expenses. Recomputed on every call: rakeback assignments and
// expense allocations change independently, so a cached value would go stale.
func (sd *SessionDetail) AvailableRakeForExpenses() int64 {
	var claimed int64
	for _, e := range sd.Expenses {
		claimed += e.PaidFromRake
	}
	available := sd.ReservedForRake() - sd.DistributedRakeback() - claimed
	if available < 0 {
		return 0
	}
	return available
}

// AllPlayersFinished checks if every player has left the game
func (sd *SessionDetail) AllPlayersFinished() bool {
	for _, p := range sd.Players {
		if p.InGame {
			return false
		}
	}
	return true
}
