package api

import (
	"net/http"
)

func (a *API) handleDeposit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var req struct {
		PlayerID int64  `json:"player_id"`
		Amount   int64  `json:"amount"`
		Note     string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := a.services.Bank.Deposit(r.Context(), sessionID, req.PlayerID, req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBankResponse(bank))
}

func (a *API) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var req struct {
		PlayerID int64  `json:"player_id"`
		Amount   int64  `json:"amount"`
		Note     string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := a.services.Bank.Withdraw(r.Context(), sessionID, req.PlayerID, req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBankResponse(bank))
}

func (a *API) handlePayExpenseFromBank(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var req struct {
		ExpenseID int64  `json:"expense_id"`
		Amount    int64  `json:"amount"`
		Note      string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := a.services.Bank.PayExpenseFromBank(r.Context(), sessionID, req.ExpenseID, req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBankResponse(bank))
}

func (a *API) handlePayTipsFromBank(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var req struct {
		Amount int64  `json:"amount"`
		Note   string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	bank, err := a.services.Bank.PayTipsFromBank(r.Context(), sessionID, req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBankResponse(bank))
}

func (a *API) handleCloseBank(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	bank, err := a.services.Bank.CloseBank(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBankResponse(bank))
}

func (a *API) handleReopenBank(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	bank, err := a.services.Bank.ReopenBank(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBankResponse(bank))
}
