package api

import (
	"context"
	"net/http"

	"chipledger/config"
	"chipledger/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// Services bundles the application services the API exposes
type Services struct {
	Session      service.SessionService
	Player       service.PlayerService
	Bank         service.BankService
	Expense      service.ExpenseService
	Settlement   service.SettlementService
	TransferFile service.TransferFileService
}

// API exposes the ledger services over JSON HTTP. Handlers stay thin:
// decode the request, call one service operation, map the error kind
// to a status code.
type API struct {
	router   *mux.Router
	server   *http.Server
	services Services
}

// New creates the API with all routes registered
func New(cfg *config.Config, services Services) *API {
	api := &API{
		router:   mux.NewRouter(),
		services: services,
	}

	api.setupRoutes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(api.router)

	api.server = &http.Server{
		Addr:    cfg.HTTPBind,
		Handler: corsHandler,
	}

	return api
}

func (a *API) setupRoutes() {
	r := a.router.PathPrefix("/api").Subrouter()

	// Sessions
	r.HandleFunc("/sessions", a.handleCreateSession).Methods("POST")
	r.HandleFunc("/sessions/{session_id}", a.handleGetSession).Methods("GET")
	r.HandleFunc("/sessions/{session_id}/rake-tips", a.handleSetRakeAndTips).Methods("PUT")

	// Players and chip transactions
	r.HandleFunc("/sessions/{session_id}/players", a.handleAddPlayer).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/players/{player_id}", a.handleRemovePlayer).Methods("DELETE")
	r.HandleFunc("/sessions/{session_id}/players/{player_id}/buy-in", a.handleBuyIn).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/players/{player_id}/add-on", a.handleAddOn).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/players/{player_id}/cash-out", a.handleCashOut).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/players/{player_id}/rebuy", a.handleRebuy).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/players/{player_id}/rakeback", a.handleSetRakeback).Methods("PUT")

	// Session bank
	r.HandleFunc("/sessions/{session_id}/bank/deposits", a.handleDeposit).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/bank/withdrawals", a.handleWithdraw).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/bank/expense-payments", a.handlePayExpenseFromBank).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/bank/tip-payments", a.handlePayTipsFromBank).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/bank/close", a.handleCloseBank).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/bank/reopen", a.handleReopenBank).Methods("POST")

	// Expenses
	r.HandleFunc("/sessions/{session_id}/expenses", a.handleAddExpense).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/expenses/{expense_id}", a.handleDeleteExpense).Methods("DELETE")
	r.HandleFunc("/sessions/{session_id}/expenses/{expense_id}/distribute-equal", a.handleDistributeEqual).Methods("POST")
	r.HandleFunc("/sessions/{session_id}/expenses/{expense_id}/distribute-manual", a.handleDistributeManual).Methods("POST")

	// Settlement
	r.HandleFunc("/sessions/{session_id}/settlement", a.handleCalculateSettlement).Methods("GET")
	r.HandleFunc("/sessions/{session_id}/settlement/transfers", a.handleSaveTransfers).Methods("POST")
	r.HandleFunc("/transfers/{transfer_id}/complete", a.handleSetTransferCompleted).Methods("POST")

	// Session transfer files
	r.HandleFunc("/sessions/{session_id}/export", a.handleExport).Methods("GET")
	r.HandleFunc("/sessions/import", a.handleImport).Methods("POST")
}

// Start begins serving requests and blocks until the server stops
func (a *API) Start() error {
	log.WithField("addr", a.server.Addr).Info("API server listening")
	err := a.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, draining in-flight requests
func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, used by tests
func (a *API) Handler() http.Handler {
	return a.router
}
