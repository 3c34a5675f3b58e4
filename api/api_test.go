package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chipledger/config"
	"chipledger/models"
	"chipledger/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessionService struct {
	createFn func(ctx context.Context, params service.CreateSessionParams) (*models.Session, error)
	detailFn func(ctx context.Context, sessionID int64) (*models.SessionDetail, error)
}

func (s *stubSessionService) CreateSession(ctx context.Context, params service.CreateSessionParams) (*models.Session, error) {
	return s.createFn(ctx, params)
}

func (s *stubSessionService) GetSessionDetail(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
	return s.detailFn(ctx, sessionID)
}

func (s *stubSessionService) SetRakeAndTips(ctx context.Context, sessionID, rakeChips, tipsChips int64) (*models.Session, error) {
	panic("not stubbed")
}

func (s *stubSessionService) RemovePlayer(ctx context.Context, sessionID int64, playerID int64) error {
	panic("not stubbed")
}

type stubSettlementService struct {
	calculateFn func(ctx context.Context, sessionID int64) (*models.SettlementResult, error)
	saveFn      func(ctx context.Context, result *models.SettlementResult) ([]*models.SettlementTransfer, error)
}

func (s *stubSettlementService) CalculateSettlement(ctx context.Context, sessionID int64) (*models.SettlementResult, error) {
	return s.calculateFn(ctx, sessionID)
}

func (s *stubSettlementService) SaveTransfers(ctx context.Context, result *models.SettlementResult) ([]*models.SettlementTransfer, error) {
	return s.saveFn(ctx, result)
}

func (s *stubSettlementService) SetTransferCompleted(ctx context.Context, transferID int64, completed bool) (*models.SettlementTransfer, error) {
	panic("not stubbed")
}

func newTestAPI(services Services) *API {
	cfg := &config.Config{HTTPBind: "127.0.0.1:0", Environment: "test"}
	return New(cfg, services)
}

func TestAPI_CreateSession(t *testing.T) {
	sessions := &stubSessionService{
		createFn: func(ctx context.Context, params service.CreateSessionParams) (*models.Session, error) {
			assert.Equal(t, "Friday Night", params.Title)
			assert.Equal(t, int64(2), params.ChipsToCashRatio)
			return &models.Session{ID: 7, Title: params.Title, GameType: "NLH", ChipsToCashRatio: 2}, nil
		},
	}
	api := newTestAPI(Services{Session: sessions})

	body := bytes.NewBufferString(`{"title": "Friday Night", "chips_to_cash_ratio": 2}`)
	req := httptest.NewRequest("POST", "/api/sessions", body)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "Friday Night", resp.Title)
}

func TestAPI_CreateSession_InvalidBody(t *testing.T) {
	api := newTestAPI(Services{Session: &stubSessionService{}})

	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetSession(t *testing.T) {
	detail := &models.SessionDetail{
		Session: &models.Session{ID: 3, Title: "Cash Game", ChipsToCashRatio: 1},
		Players: []*models.Player{
			{
				ID: 10, SessionID: 3, Name: "Alice", InGame: false,
				Transactions: []*models.ChipTransaction{
					{PlayerID: 10, Type: models.ChipTransactionTypeBuyIn, Amount: 5000},
					{PlayerID: 10, Type: models.ChipTransactionTypeCashOut, Amount: 8000},
				},
			},
			{ID: 11, SessionID: 3, Name: "Ben", InGame: true},
		},
	}
	sessions := &stubSessionService{
		detailFn: func(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
			assert.Equal(t, int64(3), sessionID)
			return detail, nil
		},
	}
	api := newTestAPI(Services{Session: sessions})

	req := httptest.NewRequest("GET", "/api/sessions/3", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Players, 2)

	// Finished player carries a financial result, the seated one does not
	require.NotNil(t, resp.Players[0].Result)
	assert.Equal(t, int64(3000), resp.Players[0].Result.Result)
	assert.Nil(t, resp.Players[1].Result)
	assert.False(t, resp.AllPlayersFinished)
}

func TestAPI_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: amount must be positive", service.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: session 3", service.ErrNotFound), http.StatusNotFound},
		{"state", fmt.Errorf("%w: bank is closed", service.ErrState), http.StatusConflict},
		{"reconciliation", fmt.Errorf("%w: unpayable credit", service.ErrReconciliation), http.StatusUnprocessableEntity},
		{"unknown", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &stubSessionService{
				detailFn: func(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
					return nil, tt.err
				},
			}
			api := newTestAPI(Services{Session: sessions})

			req := httptest.NewRequest("GET", "/api/sessions/3", nil)
			rec := httptest.NewRecorder()
			api.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAPI_SettlementRoundTrip(t *testing.T) {
	snapshot := time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)
	alice, ben := int64(10), int64(11)

	calculated := &models.SettlementResult{
		SessionID:    3,
		Balances:     map[int64]int64{alice: 2000, ben: -2000},
		BankCollects: 0,
		SnapshotAt:   snapshot,
		Transfers: []*models.SettlementTransfer{
			{SessionID: 3, FromPlayerID: &ben, ToPlayerID: &alice, Amount: 2000, Type: models.TransferTypePlayerToPlayer},
		},
	}

	settlement := &stubSettlementService{
		calculateFn: func(ctx context.Context, sessionID int64) (*models.SettlementResult, error) {
			return calculated, nil
		},
		saveFn: func(ctx context.Context, result *models.SettlementResult) ([]*models.SettlementTransfer, error) {
			// The posted document must carry the snapshot through unchanged
			assert.Equal(t, int64(3), result.SessionID)
			assert.True(t, snapshot.Equal(result.SnapshotAt))
			require.Len(t, result.Transfers, 1)
			assert.Equal(t, models.TransferTypePlayerToPlayer, result.Transfers[0].Type)

			saved := *result.Transfers[0]
			saved.ID = 42
			return []*models.SettlementTransfer{&saved}, nil
		},
	}
	api := newTestAPI(Services{Settlement: settlement})

	// Fetch the plan
	req := httptest.NewRequest("GET", "/api/sessions/3/settlement", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Post it back as-is
	req = httptest.NewRequest("POST", "/api/sessions/3/settlement/transfers", bytes.NewReader(rec.Body.Bytes()))
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved []transferResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&saved))
	require.Len(t, saved, 1)
	assert.Equal(t, int64(42), saved[0].ID)
	assert.Equal(t, int64(2000), saved[0].Amount)
}
