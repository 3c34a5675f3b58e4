package models

// FinancialBreakdown decomposes a finished player's monetary result into the
// components that produced it. Result is signed: positive means the bank owes
// the player, negative means the player owes the bank.
type FinancialBreakdown struct {
	ProfitInCash       int64
	RakebackAdjustment int64
	Deposited          int64
	Withdrawn          int64
	NetContribution    int64
	ExpensePaid        int64
	ExpenseShare       int64
	ExpenseAdjustment  int64
	Result             int64
}

// FinancialResult returns the signed cash result for a finished player.
// Active players have no settleable result and return 0.
func (sd *SessionDetail) FinancialResult(playerID int64) int64 {
	return sd.FinancialBreakdown(playerID).Result
}

// FinancialBreakdown computes the full result decomposition for a player.
// Pure derivation over the snapshot; every zero-denominator branch degrades
// to zero rather than failing.
func (sd *SessionDetail) FinancialBreakdown(playerID int64) FinancialBreakdown {
	p := sd.PlayerByID(playerID)
	if p == nil || p.InGame {
		return FinancialBreakdown{}
	}

	b := FinancialBreakdown{
		ProfitInCash: p.ChipProfit() * sd.Session.ChipsToCashRatio,
	}
	if p.GetsRakeback {
		b.RakebackAdjustment = p.Rakeback
	}

	if sd.Bank != nil {
		b.Deposited, b.Withdrawn = sd.Bank.PlayerContributions(playerID)
		// Organizational spending not covered by the rake/tips reservation is
		// carried by the depositors, in proportion to their deposits. Players
		// who never deposited carry none of it.
		if b.Deposited > 0 {
			b.Withdrawn += sd.uncoveredSpendAllocations()[playerID]
		}
	}
	b.NetContribution = b.Deposited - b.Withdrawn

	for _, e := range sd.Expenses {
		if e.PayerID != nil && *e.PayerID == playerID {
			b.ExpensePaid += e.Amount
		}
		b.ExpenseShare += e.ShareFor(playerID)
	}
	b.ExpenseAdjustment = b.ExpensePaid - b.ExpenseShare

	b.Result = b.ProfitInCash + b.RakebackAdjustment + b.NetContribution + b.ExpenseAdjustment
	return b
}

// uncoveredSpendAllocations splits the organizational spending that exceeds
// the rake/tips reservation across depositors, weighted by deposit share.
// Per-player shares truncate; the truncation residual goes to the largest
// depositor (ties broken by name ascending) so the split always sums exactly.
func (sd *SessionDetail) uncoveredSpendAllocations() map[int64]int64 {
	if sd.Bank == nil {
		return nil
	}
	uncovered := sd.Bank.OrganizationalSpend() - sd.TotalReserved()
	if uncovered <= 0 {
		return nil
	}
	totalDeposited := sd.Bank.TotalDeposited()
	if totalDeposited == 0 {
		return nil
	}

	allocations := make(map[int64]int64)
	var allocated int64
	var largest *Player
	var largestDeposit int64

	for _, p := range sd.Players {
		deposited, _ := sd.Bank.PlayerContributions(p.ID)
		if deposited == 0 {
			continue
		}
		share := uncovered * deposited / totalDeposited
		allocations[p.ID] = share
		allocated += share

		if largest == nil || deposited > largestDeposit ||
			(deposited == largestDeposit && p.Name < largest.Name) {
			largest = p
			largestDeposit = deposited
		}
	}

	if residual := uncovered - allocated; residual > 0 && largest != nil {
		allocations[largest.ID] += residual
	}
	return allocations
}
