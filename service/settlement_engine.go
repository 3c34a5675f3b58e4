package service

import (
	"fmt"
	"sort"

	"chipledger/models"
)

// partyBalance is one player's outstanding amount during plan construction
type partyBalance struct {
	playerID int64
	name     string
	amount   int64
}

// BuildSettlementPlan converts the per-player financial results of a finished
// session into an ordered transfer plan that zeroes every balance. It is a
// pure function of the snapshot: no I/O, no mutation, identical output for
// identical input.
//
// Cash the bank already holds from losing players is consumed first
// (bank_to_player), the rest is matched player to player, and whatever losing
// balance remains afterwards is owed to the house (player_to_bank). A
// creditor left unpaid after all three phases means the upstream ledger does
// not reconcile; that is surfaced as an error, never dropped.
func BuildSettlementPlan(detail *models.SessionDetail) (*models.SettlementResult, error) {
	if !detail.AllPlayersFinished() {
		return nil, fmt.Errorf("%w: settlement requires every player to have finished", ErrState)
	}

	result := &models.SettlementResult{
		SessionID: detail.Session.ID,
		Balances:  make(map[int64]int64, len(detail.Players)),
	}

	var creditors, debtors []*partyBalance
	for _, p := range detail.Players {
		balance := detail.FinancialResult(p.ID)
		result.Balances[p.ID] = balance
		switch {
		case balance > 0:
			creditors = append(creditors, &partyBalance{playerID: p.ID, name: p.Name, amount: balance})
		case balance < 0:
			debtors = append(debtors, &partyBalance{playerID: p.ID, name: p.Name, amount: -balance})
		}
	}

	// Phase 1: pay creditors out of deposits the bank holds from players who
	// lost on chips. Their own results already account for those deposits;
	// the pool is just the cash physically available.
	pool := debtorDepositPool(detail)
	sortDescending(pool)
	sortDescending(creditors)
	creditors = matchGreedy(pool, creditors, func(entry, creditor *partyBalance, amount int64) {
		result.Transfers = append(result.Transfers, newTransfer(
			detail.Session.ID,
			models.BankParty(),
			models.PlayerParty(creditor.playerID, creditor.name),
			amount,
			fmt.Sprintf("bank pays %s from %s's deposit", creditor.name, entry.name),
		))
	})

	// Phase 2: match what remains player to player, largest first on both
	// sides. Both lists are sorted once per phase; ties break by name so the
	// plan is stable across runs.
	creditors = nonZero(creditors)
	sortDescending(creditors)
	sortDescending(debtors)
	creditors = matchGreedy(debtors, creditors, func(debtor, creditor *partyBalance, amount int64) {
		result.Transfers = append(result.Transfers, newTransfer(
			detail.Session.ID,
			models.PlayerParty(debtor.playerID, debtor.name),
			models.PlayerParty(creditor.playerID, creditor.name),
			amount,
			fmt.Sprintf("%s pays %s", debtor.name, creditor.name),
		))
	})

	// Phase 3: leftover debt is the value the house retains (rake, tips);
	// debtors hand it to the bank.
	for _, debtor := range nonZero(debtors) {
		result.Transfers = append(result.Transfers, newTransfer(
			detail.Session.ID,
			models.PlayerParty(debtor.playerID, debtor.name),
			models.BankParty(),
			debtor.amount,
			fmt.Sprintf("%s pays the bank", debtor.name),
		))
		result.BankCollects += debtor.amount
	}

	if unpaid := nonZero(creditors); len(unpaid) > 0 {
		var total int64
		for _, c := range unpaid {
			total += c.amount
		}
		return nil, fmt.Errorf("%w: %d in credit has no cash source; the ledger upstream is inconsistent", ErrReconciliation, total)
	}

	return result, nil
}

// debtorDepositPool collects the bank cash still held from players whose
// result before their own bank contributions is negative. Those are the
// players whose cash the bank may pass straight on to the winners. Only the
// net of each player's deposits and withdrawals counts; cash a player has
// already taken back is no longer in the bank to pay out.
func debtorDepositPool(detail *models.SessionDetail) []*partyBalance {
	if detail.Bank == nil {
		return nil
	}
	var pool []*partyBalance
	for _, p := range detail.Players {
		breakdown := detail.FinancialBreakdown(p.ID)
		if breakdown.Result-breakdown.NetContribution >= 0 {
			continue
		}
		deposited, withdrawn := detail.Bank.PlayerContributions(p.ID)
		if held := deposited - withdrawn; held > 0 {
			pool = append(pool, &partyBalance{playerID: p.ID, name: p.Name, amount: held})
		}
	}
	return pool
}

// sortDescending orders balances by amount descending, ties by name ascending
func sortDescending(balances []*partyBalance) {
	sort.SliceStable(balances, func(i, j int) bool {
		if balances[i].amount != balances[j].amount {
			return balances[i].amount > balances[j].amount
		}
		return balances[i].name < balances[j].name
	})
}

// matchGreedy runs the single-pass largest-first matching: pay
// min(source, creditor) from the head of each list and advance whichever
// side hits zero. Neither list is re-sorted mid-pass. Returns the creditor
// list with whatever remains unpaid.
func matchGreedy(sources, creditors []*partyBalance, emit func(source, creditor *partyBalance, amount int64)) []*partyBalance {
	i, j := 0, 0
	for i < len(sources) && j < len(creditors) {
		source, creditor := sources[i], creditors[j]
		amount := source.amount
		if creditor.amount < amount {
			amount = creditor.amount
		}
		if amount > 0 {
			emit(source, creditor, amount)
			source.amount -= amount
			creditor.amount -= amount
		}
		if source.amount == 0 {
			i++
		}
		if creditor.amount == 0 {
			j++
		}
	}
	return creditors
}

// nonZero filters out settled balances
func nonZero(balances []*partyBalance) []*partyBalance {
	var remaining []*partyBalance
	for _, b := range balances {
		if b.amount > 0 {
			remaining = append(remaining, b)
		}
	}
	return remaining
}

// newTransfer builds a transfer between two parties, deriving the transfer
// type from which side is the bank
func newTransfer(sessionID int64, from, to models.TransferParty, amount int64, note string) *models.SettlementTransfer {
	transferType := models.TransferTypePlayerToPlayer
	switch {
	case from.IsBank():
		transferType = models.TransferTypeBankToPlayer
	case to.IsBank():
		transferType = models.TransferTypePlayerToBank
	}
	return &models.SettlementTransfer{
		SessionID:    sessionID,
		FromPlayerID: from.PlayerID(),
		ToPlayerID:   to.PlayerID(),
		Amount:       amount,
		Type:         transferType,
		Note:         note,
	}
}
