package service

import (
	"testing"

	"chipledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planPlayer is the input shorthand for settlement plan tests
type planPlayer struct {
	id       int64
	name     string
	buyIn    int64
	cashOut  int64
	deposit  int64
	withdraw int64
}

func buildDetail(rakeChips int64, players []planPlayer) *models.SessionDetail {
	detail := &models.SessionDetail{
		Session: &models.Session{
			ID:               1,
			Title:            "Friday game",
			ChipsToCashRatio: 1,
			RakeAmount:       rakeChips,
		},
	}

	var bankTxs []*models.SessionBankTransaction
	for _, pp := range players {
		player := &models.Player{
			ID:        pp.id,
			SessionID: 1,
			Name:      pp.name,
			InGame:    false,
		}
		player.Transactions = append(player.Transactions, &models.ChipTransaction{
			PlayerID: pp.id,
			Type:     models.ChipTransactionTypeBuyIn,
			Amount:   pp.buyIn,
		})
		if pp.cashOut > 0 {
			player.Transactions = append(player.Transactions, &models.ChipTransaction{
				PlayerID: pp.id,
				Type:     models.ChipTransactionTypeCashOut,
				Amount:   pp.cashOut,
			})
		}
		detail.Players = append(detail.Players, player)

		if pp.deposit > 0 {
			id := pp.id
			bankTxs = append(bankTxs, &models.SessionBankTransaction{
				BankID:   1,
				PlayerID: &id,
				Type:     models.BankTransactionTypeDeposit,
				Amount:   pp.deposit,
			})
		}
		if pp.withdraw > 0 {
			id := pp.id
			bankTxs = append(bankTxs, &models.SessionBankTransaction{
				BankID:   1,
				PlayerID: &id,
				Type:     models.BankTransactionTypeWithdrawal,
				Amount:   pp.withdraw,
			})
		}
	}

	if len(bankTxs) > 0 {
		detail.Bank = &models.SessionBank{
			ID:           1,
			SessionID:    1,
			Transactions: bankTxs,
		}
	}

	return detail
}

// replayTransfers applies a plan to the given starting balances and returns
// what each player ends up with
func replayTransfers(balances map[int64]int64, transfers []*models.SettlementTransfer) map[int64]int64 {
	final := make(map[int64]int64, len(balances))
	for id, b := range balances {
		final[id] = b
	}
	for _, t := range transfers {
		if t.FromPlayerID != nil {
			final[*t.FromPlayerID] += t.Amount
		}
		if t.ToPlayerID != nil {
			final[*t.ToPlayerID] -= t.Amount
		}
	}
	return final
}

func TestBuildSettlementPlan_NinePlayersWithDeposits(t *testing.T) {
	// Every chip result is matched by an opposite one, and the three biggest
	// losers already handed part of their loss to the bank as deposits.
	detail := buildDetail(0, []planPlayer{
		{id: 1, name: "Alice", buyIn: 20000, cashOut: 33000},
		{id: 2, name: "Ben", buyIn: 20000, cashOut: 27000},
		{id: 3, name: "Carol", buyIn: 20000, cashOut: 23000},
		{id: 4, name: "Dan", buyIn: 20000, cashOut: 23000},
		{id: 5, name: "Eve", buyIn: 20000, cashOut: 18000},
		{id: 6, name: "Frank", buyIn: 20000, cashOut: 15000},
		{id: 7, name: "Grace", buyIn: 20000, cashOut: 16000, deposit: 2000},
		{id: 8, name: "Henry", buyIn: 20000, cashOut: 13000, deposit: 5000},
		{id: 9, name: "Iris", buyIn: 20000, cashOut: 12000, deposit: 5000},
	})

	result, err := BuildSettlementPlan(detail)
	require.NoError(t, err)

	// Deposits offset the depositors' losses in their own balances.
	assert.Equal(t, int64(13000), result.Balances[1])
	assert.Equal(t, int64(-2000), result.Balances[7])
	assert.Equal(t, int64(-2000), result.Balances[8])
	assert.Equal(t, int64(-3000), result.Balances[9])

	var bankPays, p2p, toBank []*models.SettlementTransfer
	for _, tr := range result.Transfers {
		switch tr.Type {
		case models.TransferTypeBankToPlayer:
			bankPays = append(bankPays, tr)
		case models.TransferTypePlayerToPlayer:
			p2p = append(p2p, tr)
		case models.TransferTypePlayerToBank:
			toBank = append(toBank, tr)
		}
	}

	// The pooled deposits go out first, all to the biggest winner.
	require.Len(t, bankPays, 3)
	for _, tr := range bankPays {
		assert.Nil(t, tr.FromPlayerID)
		assert.Equal(t, int64(1), *tr.ToPlayerID)
	}
	assert.Equal(t, int64(5000), bankPays[0].Amount)
	assert.Equal(t, int64(5000), bankPays[1].Amount)
	assert.Equal(t, int64(2000), bankPays[2].Amount)

	require.Len(t, p2p, 7)
	assert.Empty(t, toBank)
	assert.Zero(t, result.BankCollects)

	// Replaying the full plan zeroes every balance.
	final := replayTransfers(result.Balances, result.Transfers)
	for id, balance := range final {
		assert.Zerof(t, balance, "player %d not settled", id)
	}
}

func TestBuildSettlementPlan_LargestFirstPairing(t *testing.T) {
	detail := buildDetail(0, []planPlayer{
		{id: 1, name: "Alice", buyIn: 1000, cashOut: 8000},
		{id: 2, name: "Ben", buyIn: 1000, cashOut: 4000},
		{id: 3, name: "Carol", buyIn: 6000, cashOut: 1000},
		{id: 4, name: "Dan", buyIn: 6000, cashOut: 1000},
	})

	result, err := BuildSettlementPlan(detail)
	require.NoError(t, err)
	require.Len(t, result.Transfers, 3)

	// Biggest debtor pays the biggest creditor; the Carol/Dan tie breaks by name.
	first := result.Transfers[0]
	assert.Equal(t, int64(3), *first.FromPlayerID)
	assert.Equal(t, int64(1), *first.ToPlayerID)
	assert.Equal(t, int64(5000), first.Amount)

	second := result.Transfers[1]
	assert.Equal(t, int64(4), *second.FromPlayerID)
	assert.Equal(t, int64(1), *second.ToPlayerID)
	assert.Equal(t, int64(2000), second.Amount)

	third := result.Transfers[2]
	assert.Equal(t, int64(4), *third.FromPlayerID)
	assert.Equal(t, int64(2), *third.ToPlayerID)
	assert.Equal(t, int64(3000), third.Amount)
}

func TestBuildSettlementPlan_RakeCollectedByBank(t *testing.T) {
	// The 5000-chip rake means the players' combined result is -5000; the
	// shortfall flows to the bank, never to another player.
	detail := buildDetail(5000, []planPlayer{
		{id: 1, name: "Alice", buyIn: 10000, cashOut: 12000},
		{id: 2, name: "Ben", buyIn: 10000, cashOut: 3000},
	})

	result, err := BuildSettlementPlan(detail)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), result.Balances[1])
	assert.Equal(t, int64(-7000), result.Balances[2])

	require.Len(t, result.Transfers, 2)
	assert.Equal(t, models.TransferTypePlayerToPlayer, result.Transfers[0].Type)
	assert.Equal(t, int64(2000), result.Transfers[0].Amount)

	house := result.Transfers[1]
	assert.Equal(t, models.TransferTypePlayerToBank, house.Type)
	assert.Equal(t, int64(2), *house.FromPlayerID)
	assert.Nil(t, house.ToPlayerID)
	assert.Equal(t, int64(5000), house.Amount)
	assert.Equal(t, int64(5000), result.BankCollects)
}

func TestBuildSettlementPlan_WithdrawnDepositIsNotPaidOut(t *testing.T) {
	// Alice handed the bank 5000 but took 2000 back out, so the bank only
	// holds 3000 of her cash. The plan must not pay out more than that.
	detail := buildDetail(0, []planPlayer{
		{id: 1, name: "Alice", buyIn: 20000, cashOut: 12000, deposit: 5000, withdraw: 2000},
		{id: 2, name: "Ben", buyIn: 20000, cashOut: 28000},
	})

	result, err := BuildSettlementPlan(detail)
	require.NoError(t, err)

	assert.Equal(t, int64(-5000), result.Balances[1])
	assert.Equal(t, int64(8000), result.Balances[2])

	require.Len(t, result.Transfers, 2)

	bankPays := result.Transfers[0]
	assert.Equal(t, models.TransferTypeBankToPlayer, bankPays.Type)
	assert.Nil(t, bankPays.FromPlayerID)
	assert.Equal(t, int64(2), *bankPays.ToPlayerID)
	assert.Equal(t, int64(3000), bankPays.Amount)

	direct := result.Transfers[1]
	assert.Equal(t, models.TransferTypePlayerToPlayer, direct.Type)
	assert.Equal(t, int64(1), *direct.FromPlayerID)
	assert.Equal(t, int64(2), *direct.ToPlayerID)
	assert.Equal(t, int64(5000), direct.Amount)

	// No rake means nothing is owed to the house.
	assert.Zero(t, result.BankCollects)

	final := replayTransfers(result.Balances, result.Transfers)
	for id, balance := range final {
		assert.Zerof(t, balance, "player %d not settled", id)
	}
}

func TestBuildSettlementPlan_BreakEvenPlayerGetsNoTransfers(t *testing.T) {
	detail := buildDetail(0, []planPlayer{
		{id: 1, name: "Alice", buyIn: 1000, cashOut: 2000},
		{id: 2, name: "Ben", buyIn: 1000, cashOut: 1000},
		{id: 3, name: "Carol", buyIn: 2000, cashOut: 1000},
	})

	result, err := BuildSettlementPlan(detail)
	require.NoError(t, err)

	assert.Zero(t, result.Balances[2])
	for _, tr := range result.Transfers {
		if tr.FromPlayerID != nil {
			assert.NotEqual(t, int64(2), *tr.FromPlayerID)
		}
		if tr.ToPlayerID != nil {
			assert.NotEqual(t, int64(2), *tr.ToPlayerID)
		}
	}
}

func TestBuildSettlementPlan_UnfinishedPlayerRejected(t *testing.T) {
	detail := buildDetail(0, []planPlayer{
		{id: 1, name: "Alice", buyIn: 1000, cashOut: 1000},
	})
	detail.Players = append(detail.Players, &models.Player{
		ID:        2,
		SessionID: 1,
		Name:      "Ben",
		InGame:    true,
	})

	_, err := BuildSettlementPlan(detail)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrState)
}

func TestBuildSettlementPlan_UnpayableCreditIsAnError(t *testing.T) {
	// More cashed out than bought in, with nobody owing the difference: the
	// plan must refuse rather than silently drop the credit.
	detail := buildDetail(0, []planPlayer{
		{id: 1, name: "Alice", buyIn: 1000, cashOut: 2000},
	})

	_, err := BuildSettlementPlan(detail)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReconciliation)
}

func TestBuildSettlementPlan_Deterministic(t *testing.T) {
	players := []planPlayer{
		{id: 1, name: "Alice", buyIn: 20000, cashOut: 33000},
		{id: 2, name: "Ben", buyIn: 20000, cashOut: 27000},
		{id: 3, name: "Carol", buyIn: 20000, cashOut: 23000},
		{id: 4, name: "Dan", buyIn: 20000, cashOut: 23000},
		{id: 5, name: "Eve", buyIn: 20000, cashOut: 18000},
		{id: 6, name: "Frank", buyIn: 20000, cashOut: 15000},
		{id: 7, name: "Grace", buyIn: 20000, cashOut: 16000, deposit: 2000},
		{id: 8, name: "Henry", buyIn: 20000, cashOut: 13000, deposit: 5000},
		{id: 9, name: "Iris", buyIn: 20000, cashOut: 12000, deposit: 5000},
	}

	first, err := BuildSettlementPlan(buildDetail(0, players))
	require.NoError(t, err)
	second, err := BuildSettlementPlan(buildDetail(0, players))
	require.NoError(t, err)

	require.Equal(t, len(first.Transfers), len(second.Transfers))
	for i := range first.Transfers {
		assert.Equal(t, first.Transfers[i].Type, second.Transfers[i].Type)
		assert.Equal(t, first.Transfers[i].Amount, second.Transfers[i].Amount)
		assert.Equal(t, first.Transfers[i].Note, second.Transfers[i].Note)
	}
}
