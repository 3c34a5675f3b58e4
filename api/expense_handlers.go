package api

import (
	"net/http"

	"chipledger/service"
)

func (a *API) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var req struct {
		Amount  int64  `json:"amount"`
		Note    string `json:"note"`
		PayerID *int64 `json:"payer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	expense, err := a.services.Expense.AddExpense(r.Context(), sessionID, req.Amount, req.Note, req.PayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expense_id")
	if !ok {
		return
	}

	if err := a.services.Expense.DeleteExpense(r.Context(), sessionID, expenseID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "expense deleted"})
}

func (a *API) handleDistributeEqual(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expense_id")
	if !ok {
		return
	}

	var req struct {
		PlayerIDs       []int64 `json:"player_ids"`
		IncludeRakePool bool    `json:"include_rake_pool"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	expense, err := a.services.Expense.DistributeEqual(r.Context(), sessionID, expenseID, req.PlayerIDs, req.IncludeRakePool)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (a *API) handleDistributeManual(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expense_id")
	if !ok {
		return
	}

	var req struct {
		Shares []struct {
			PlayerID *int64 `json:"player_id"`
			Amount   int64  `json:"amount"`
		} `json:"shares"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	shares := make([]service.ManualShare, 0, len(req.Shares))
	for _, s := range req.Shares {
		shares = append(shares, service.ManualShare{PlayerID: s.PlayerID, Amount: s.Amount})
	}

	expense, err := a.services.Expense.DistributeManual(r.Context(), sessionID, expenseID, shares)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}
