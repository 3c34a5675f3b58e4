package api

import (
	"context"
	"net/http"
	"time"

	"chipledger/models"
	"chipledger/service"
)

type sessionResponse struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Location         string    `json:"location,omitempty"`
	GameType         string    `json:"game_type"`
	ChipsToCashRatio int64     `json:"chips_to_cash_ratio"`
	SmallBlind       int64     `json:"small_blind"`
	BigBlind         int64     `json:"big_blind"`
	Ante             int64     `json:"ante"`
	RakeAmount       int64     `json:"rake_amount"`
	TipsAmount       int64     `json:"tips_amount"`
	TipsPaidFromBank int64     `json:"tips_paid_from_bank"`
	StartedAt        time.Time `json:"started_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type playerResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	InGame       bool   `json:"in_game"`
	GetsRakeback bool   `json:"gets_rakeback"`
	Rakeback     int64  `json:"rakeback"`
	ChipBuyIn    int64  `json:"chip_buy_in"`
	ChipCashOut  int64  `json:"chip_cash_out"`
	ChipProfit   int64  `json:"chip_profit"`

	// Result is the player's signed cash outcome, present once they have
	// finished playing
	Result *financialResponse `json:"result,omitempty"`
}

type financialResponse struct {
	ProfitInCash       int64 `json:"profit_in_cash"`
	RakebackAdjustment int64 `json:"rakeback_adjustment"`
	Deposited          int64 `json:"deposited"`
	Withdrawn          int64 `json:"withdrawn"`
	NetContribution    int64 `json:"net_contribution"`
	ExpensePaid        int64 `json:"expense_paid"`
	ExpenseShare       int64 `json:"expense_share"`
	ExpenseAdjustment  int64 `json:"expense_adjustment"`
	Result             int64 `json:"result"`
}

type expenseResponse struct {
	ID            int64           `json:"id"`
	Amount        int64           `json:"amount"`
	Note          string          `json:"note,omitempty"`
	PayerID       *int64          `json:"payer_id,omitempty"`
	PaidFromRake  int64           `json:"paid_from_rake"`
	PaidFromBank  int64           `json:"paid_from_bank"`
	Distributions []shareResponse `json:"distributions"`
}

type shareResponse struct {
	PlayerID int64 `json:"player_id"`
	Amount   int64 `json:"amount"`
}

type bankResponse struct {
	ID              int64                     `json:"id"`
	ManagerPlayerID *int64                    `json:"manager_player_id,omitempty"`
	IsClosed        bool                      `json:"is_closed"`
	ExpectedTotal   int64                     `json:"expected_total"`
	TotalDeposited  int64                     `json:"total_deposited"`
	TotalWithdrawn  int64                     `json:"total_withdrawn"`
	NetBalance      int64                     `json:"net_balance"`
	Transactions    []bankTransactionResponse `json:"transactions"`
}

type bankTransactionResponse struct {
	ID        int64     `json:"id"`
	PlayerID  *int64    `json:"player_id,omitempty"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Note      string    `json:"note,omitempty"`
	ExpenseID *int64    `json:"expense_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionDetailResponse struct {
	Session  sessionResponse   `json:"session"`
	Players  []playerResponse  `json:"players"`
	Expenses []expenseResponse `json:"expenses"`
	Bank     *bankResponse     `json:"bank,omitempty"`

	TotalChipsBought         int64 `json:"total_chips_bought"`
	TotalChipsCashedOut      int64 `json:"total_chips_cashed_out"`
	ChipsInGame              int64 `json:"chips_in_game"`
	ReservedForRake          int64 `json:"reserved_for_rake"`
	ReservedForTips          int64 `json:"reserved_for_tips"`
	DistributedRakeback      int64 `json:"distributed_rakeback"`
	AvailableRakeForExpenses int64 `json:"available_rake_for_expenses"`
	AllPlayersFinished       bool  `json:"all_players_finished"`
}

func toSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{
		ID:               s.ID,
		Title:            s.Title,
		Location:         s.Location,
		GameType:         s.GameType,
		ChipsToCashRatio: s.ChipsToCashRatio,
		SmallBlind:       s.SmallBlind,
		BigBlind:         s.BigBlind,
		Ante:             s.Ante,
		RakeAmount:       s.RakeAmount,
		TipsAmount:       s.TipsAmount,
		TipsPaidFromBank: s.TipsPaidFromBank,
		StartedAt:        s.StartedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toPlayerResponse(p *models.Player) playerResponse {
	return playerResponse{
		ID:           p.ID,
		Name:         p.Name,
		InGame:       p.InGame,
		GetsRakeback: p.GetsRakeback,
		Rakeback:     p.Rakeback,
		ChipBuyIn:    p.ChipBuyIn(),
		ChipCashOut:  p.ChipCashOut(),
		ChipProfit:   p.ChipProfit(),
	}
}

func toDetailResponse(detail *models.SessionDetail) sessionDetailResponse {
	resp := sessionDetailResponse{
		Session:                  toSessionResponse(detail.Session),
		Players:                  make([]playerResponse, 0, len(detail.Players)),
		Expenses:                 make([]expenseResponse, 0, len(detail.Expenses)),
		TotalChipsBought:         detail.TotalChipsBought(),
		TotalChipsCashedOut:      detail.TotalChipsCashedOut(),
		ChipsInGame:              detail.ChipsInGame(),
		ReservedForRake:          detail.ReservedForRake(),
		ReservedForTips:          detail.ReservedForTips(),
		DistributedRakeback:      detail.DistributedRakeback(),
		AvailableRakeForExpenses: detail.AvailableRakeForExpenses(),
		AllPlayersFinished:       detail.AllPlayersFinished(),
	}

	for _, p := range detail.Players {
		pr := toPlayerResponse(p)
		if p.HasFinished() {
			breakdown := detail.FinancialBreakdown(p.ID)
			pr.Result = &financialResponse{
				ProfitInCash:       breakdown.ProfitInCash,
				RakebackAdjustment: breakdown.RakebackAdjustment,
				Deposited:          breakdown.Deposited,
				Withdrawn:          breakdown.Withdrawn,
				NetContribution:    breakdown.NetContribution,
				ExpensePaid:        breakdown.ExpensePaid,
				ExpenseShare:       breakdown.ExpenseShare,
				ExpenseAdjustment:  breakdown.ExpenseAdjustment,
				Result:             breakdown.Result,
			}
		}
		resp.Players = append(resp.Players, pr)
	}

	for _, e := range detail.Expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}

	if detail.Bank != nil {
		bank := toBankResponse(detail.Bank)
		resp.Bank = &bank
	}

	return resp
}

func toExpenseResponse(e *models.Expense) expenseResponse {
	resp := expenseResponse{
		ID:            e.ID,
		Amount:        e.Amount,
		Note:          e.Note,
		PayerID:       e.PayerID,
		PaidFromRake:  e.PaidFromRake,
		PaidFromBank:  e.PaidFromBank,
		Distributions: make([]shareResponse, 0, len(e.Distributions)),
	}
	for _, d := range e.Distributions {
		resp.Distributions = append(resp.Distributions, shareResponse{
			PlayerID: d.PlayerID,
			Amount:   d.Amount,
		})
	}
	return resp
}

func toBankResponse(b *models.SessionBank) bankResponse {
	resp := bankResponse{
		ID:              b.ID,
		ManagerPlayerID: b.ManagerPlayerID,
		IsClosed:        b.IsClosed,
		ExpectedTotal:   b.ExpectedTotal,
		TotalDeposited:  b.TotalDeposited(),
		TotalWithdrawn:  b.TotalWithdrawn(),
		NetBalance:      b.NetBalance(),
		Transactions:    make([]bankTransactionResponse, 0, len(b.Transactions)),
	}
	for _, tx := range b.Transactions {
		resp.Transactions = append(resp.Transactions, bankTransactionResponse{
			ID:        tx.ID,
			PlayerID:  tx.PlayerID,
			Type:      string(tx.Type),
			Amount:    tx.Amount,
			Note:      tx.Note,
			ExpenseID: tx.ExpenseID,
			CreatedAt: tx.CreatedAt,
		})
	}
	return resp
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title            string    `json:"title"`
		Location         string    `json:"location"`
		GameType         string    `json:"game_type"`
		ChipsToCashRatio int64     `json:"chips_to_cash_ratio"`
		SmallBlind       int64     `json:"small_blind"`
		BigBlind         int64     `json:"big_blind"`
		Ante             int64     `json:"ante"`
		StartedAt        time.Time `json:"started_at"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := a.services.Session.CreateSession(r.Context(), service.CreateSessionParams{
		Title:            req.Title,
		Location:         req.Location,
		GameType:         req.GameType,
		ChipsToCashRatio: req.ChipsToCashRatio,
		SmallBlind:       req.SmallBlind,
		BigBlind:         req.BigBlind,
		Ante:             req.Ante,
		StartedAt:        req.StartedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	detail, err := a.services.Session.GetSessionDetail(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (a *API) handleSetRakeAndTips(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var req struct {
		RakeChips int64 `json:"rake_chips"`
		TipsChips int64 `json:"tips_chips"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := a.services.Session.SetRakeAndTips(r.Context(), sessionID, req.RakeChips, req.TipsChips)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (a *API) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	player, err := a.services.Player.AddPlayer(r.Context(), sessionID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPlayerResponse(player))
}

func (a *API) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}
	playerID, ok := pathID(w, r, "player_id")
	if !ok {
		return
	}

	if err := a.services.Session.RemovePlayer(r.Context(), sessionID, playerID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "player removed"})
}

// chipCommand covers the four chip operations that share a request shape
type chipCommand func(ctx context.Context, sessionID, playerID, chips int64) (*models.Player, error)

func (a *API) handleChipCommand(w http.ResponseWriter, r *http.Request, op chipCommand) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}
	playerID, ok := pathID(w, r, "player_id")
	if !ok {
		return
	}

	var req struct {
		Chips int64 `json:"chips"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	player, err := op(r.Context(), sessionID, playerID, req.Chips)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlayerResponse(player))
}

func (a *API) handleBuyIn(w http.ResponseWriter, r *http.Request) {
	a.handleChipCommand(w, r, a.services.Player.RecordBuyIn)
}

func (a *API) handleAddOn(w http.ResponseWriter, r *http.Request) {
	a.handleChipCommand(w, r, a.services.Player.RecordAddOn)
}

func (a *API) handleCashOut(w http.ResponseWriter, r *http.Request) {
	a.handleChipCommand(w, r, a.services.Player.RecordCashOut)
}

func (a *API) handleRebuy(w http.ResponseWriter, r *http.Request) {
	a.handleChipCommand(w, r, a.services.Player.Rebuy)
}

func (a *API) handleSetRakeback(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}
	playerID, ok := pathID(w, r, "player_id")
	if !ok {
		return
	}

	var req struct {
		GetsRakeback bool  `json:"gets_rakeback"`
		Amount       int64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	player, err := a.services.Player.SetRakeback(r.Context(), sessionID, playerID, req.GetsRakeback, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlayerResponse(player))
}
