package testutil

import (
	"time"

	"chipledger/models"
)

// CreateTestSession creates a test session with default values
func CreateTestSession(title string) *models.Session {
	return &models.Session{
		Title:            title,
		GameType:         "NLH",
		ChipsToCashRatio: 1,
		SmallBlind:       25,
		BigBlind:         50,
		StartedAt:        time.Now(),
	}
}

// CreateTestSessionWithRatio creates a test session with a specific chips-to-cash ratio
func CreateTestSessionWithRatio(title string, ratio int64) *models.Session {
	session := CreateTestSession(title)
	session.ChipsToCashRatio = ratio
	return session
}

// CreateTestPlayer creates a test player for a session
func CreateTestPlayer(sessionID int64, name string) *models.Player {
	return &models.Player{
		SessionID: sessionID,
		Name:      name,
		InGame:    true,
	}
}

// CreateTestChipTransaction creates a test chip transaction
func CreateTestChipTransaction(playerID int64, txType models.ChipTransactionType, amount int64) *models.ChipTransaction {
	return &models.ChipTransaction{
		PlayerID: playerID,
		Type:     txType,
		Amount:   amount,
	}
}

// CreateTestExpense creates a test expense for a session
func CreateTestExpense(sessionID int64, amount int64, note string) *models.Expense {
	return &models.Expense{
		SessionID: sessionID,
		Amount:    amount,
		Note:      note,
	}
}

// CreateTestBankTransaction creates a test bank transaction linked to a player
func CreateTestBankTransaction(bankID, playerID int64, txType models.BankTransactionType, amount int64) *models.SessionBankTransaction {
	return &models.SessionBankTransaction{
		BankID:   bankID,
		PlayerID: &playerID,
		Type:     txType,
		Amount:   amount,
	}
}

// CreateTestSettlementTransfer creates a player-to-player test transfer
func CreateTestSettlementTransfer(sessionID, fromID, toID, amount int64) *models.SettlementTransfer {
	return &models.SettlementTransfer{
		SessionID:    sessionID,
		FromPlayerID: &fromID,
		ToPlayerID:   &toID,
		Amount:       amount,
		Type:         models.TransferTypePlayerToPlayer,
	}
}
