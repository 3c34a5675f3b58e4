package api

import (
	"net/http"
	"time"

	"chipledger/models"
	"chipledger/service"
)

type transferResponse struct {
	ID           int64      `json:"id,omitempty"`
	FromPlayerID *int64     `json:"from_player_id,omitempty"`
	ToPlayerID   *int64     `json:"to_player_id,omitempty"`
	Amount       int64      `json:"amount"`
	Type         string     `json:"type"`
	IsCompleted  bool       `json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Note         string     `json:"note,omitempty"`
}

// settlementDocument is the wire form of a computed plan. The client posts
// it back unchanged to persist the transfers; snapshot_at is what lets the
// service reject a plan computed against an already-mutated ledger.
type settlementDocument struct {
	SessionID    int64              `json:"session_id"`
	Balances     map[int64]int64    `json:"balances"`
	Transfers    []transferResponse `json:"transfers"`
	BankCollects int64              `json:"bank_collects"`
	SnapshotAt   time.Time          `json:"snapshot_at"`
}

func toTransferResponse(t *models.SettlementTransfer) transferResponse {
	return transferResponse{
		ID:           t.ID,
		FromPlayerID: t.FromPlayerID,
		ToPlayerID:   t.ToPlayerID,
		Amount:       t.Amount,
		Type:         string(t.Type),
		IsCompleted:  t.IsCompleted,
		CompletedAt:  t.CompletedAt,
		Note:         t.Note,
	}
}

func toSettlementDocument(result *models.SettlementResult) settlementDocument {
	doc := settlementDocument{
		SessionID:    result.SessionID,
		Balances:     result.Balances,
		Transfers:    make([]transferResponse, 0, len(result.Transfers)),
		BankCollects: result.BankCollects,
		SnapshotAt:   result.SnapshotAt,
	}
	for _, t := range result.Transfers {
		doc.Transfers = append(doc.Transfers, toTransferResponse(t))
	}
	return doc
}

func (doc *settlementDocument) toResult() *models.SettlementResult {
	result := &models.SettlementResult{
		SessionID:    doc.SessionID,
		Balances:     doc.Balances,
		Transfers:    make([]*models.SettlementTransfer, 0, len(doc.Transfers)),
		BankCollects: doc.BankCollects,
		SnapshotAt:   doc.SnapshotAt,
	}
	for _, t := range doc.Transfers {
		result.Transfers = append(result.Transfers, &models.SettlementTransfer{
			SessionID:    doc.SessionID,
			FromPlayerID: t.FromPlayerID,
			ToPlayerID:   t.ToPlayerID,
			Amount:       t.Amount,
			Type:         models.TransferType(t.Type),
			Note:         t.Note,
		})
	}
	return result
}

func (a *API) handleCalculateSettlement(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	result, err := a.services.Settlement.CalculateSettlement(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettlementDocument(result))
}

func (a *API) handleSaveTransfers(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	var doc settlementDocument
	if !decodeBody(w, r, &doc) {
		return
	}
	doc.SessionID = sessionID

	saved, err := a.services.Settlement.SaveTransfers(r.Context(), doc.toResult())
	if err != nil {
		writeError(w, err)
		return
	}

	transfers := make([]transferResponse, 0, len(saved))
	for _, t := range saved {
		transfers = append(transfers, toTransferResponse(t))
	}

	writeJSON(w, http.StatusCreated, transfers)
}

func (a *API) handleSetTransferCompleted(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r, "transfer_id")
	if !ok {
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	transfer, err := a.services.Settlement.SetTransferCompleted(r.Context(), transferID, req.Completed)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransferResponse(transfer))
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	file, err := a.services.TransferFile.Export(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	var file service.TransferFile
	if !decodeBody(w, r, &file) {
		return
	}

	session, err := a.services.TransferFile.Import(r.Context(), &file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}
