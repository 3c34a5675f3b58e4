package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chipledger/models"
)

// TransferFileFormatVersion is the only document version this build reads and writes
const TransferFileFormatVersion = 1

// TransferFile is the portable representation of a full session graph.
// Database IDs never leave the process: entities reference each other
// through per-document UUIDs, assigned on export and re-mapped on import.
type TransferFile struct {
	FormatVersion int                 `json:"format_version"`
	ExportedAt    time.Time           `json:"exported_at"`
	Session       TransferSession     `json:"session"`
	Players       []TransferPlayer    `json:"players"`
	Expenses      []TransferExpense   `json:"expenses"`
	Bank          *TransferBank       `json:"bank,omitempty"`
	Settlements   []TransferSettle    `json:"settlement_transfers,omitempty"`
}

// TransferSession carries the session's own fields
type TransferSession struct {
	Title            string    `json:"title"`
	Location         string    `json:"location,omitempty"`
	GameType         string    `json:"game_type"`
	ChipsToCashRatio int64     `json:"chips_to_cash_ratio"`
	SmallBlind       int64     `json:"small_blind,omitempty"`
	BigBlind         int64     `json:"big_blind,omitempty"`
	Ante             int64     `json:"ante,omitempty"`
	RakeAmount       int64     `json:"rake_amount,omitempty"`
	TipsAmount       int64     `json:"tips_amount,omitempty"`
	TipsPaidFromBank int64     `json:"tips_paid_from_bank,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

// TransferPlayer carries one player and their chip movements
type TransferPlayer struct {
	Ref          string            `json:"ref"`
	Name         string            `json:"name"`
	InGame       bool              `json:"in_game"`
	GetsRakeback bool              `json:"gets_rakeback,omitempty"`
	Rakeback     int64             `json:"rakeback,omitempty"`
	Transactions []TransferChipTx  `json:"transactions,omitempty"`
}

// TransferChipTx carries one chip movement
type TransferChipTx struct {
	Type   models.ChipTransactionType `json:"type"`
	Amount int64                      `json:"amount"`
}

// TransferExpense carries one expense with its distribution
type TransferExpense struct {
	Ref           string              `json:"ref"`
	Amount        int64               `json:"amount"`
	Note          string              `json:"note,omitempty"`
	PayerRef      *string             `json:"payer_ref,omitempty"`
	PaidFromRake  int64               `json:"paid_from_rake,omitempty"`
	PaidFromBank  int64               `json:"paid_from_bank,omitempty"`
	Distributions []TransferShare     `json:"distributions,omitempty"`
}

// TransferShare carries one player's share of an expense
type TransferShare struct {
	PlayerRef string `json:"player_ref"`
	Amount    int64  `json:"amount"`
}

// TransferBank carries the session bank and its cash movements
type TransferBank struct {
	ManagerRef    *string          `json:"manager_ref,omitempty"`
	IsClosed      bool             `json:"is_closed"`
	ExpectedTotal int64            `json:"expected_total,omitempty"`
	Transactions  []TransferBankTx `json:"transactions,omitempty"`
}

// TransferBankTx carries one cash movement through the bank
type TransferBankTx struct {
	PlayerRef  *string                    `json:"player_ref,omitempty"`
	Type       models.BankTransactionType `json:"type"`
	Amount     int64                      `json:"amount"`
	Note       string                     `json:"note,omitempty"`
	ExpenseRef *string                    `json:"expense_ref,omitempty"`
}

// TransferSettle carries one settlement transfer
type TransferSettle struct {
	FromRef     *string             `json:"from_ref,omitempty"`
	ToRef       *string             `json:"to_ref,omitempty"`
	Amount      int64               `json:"amount"`
	Type        models.TransferType `json:"type"`
	IsCompleted bool                `json:"is_completed"`
	Note        string              `json:"note,omitempty"`
}

type transferFileService struct {
	uowFactory UnitOfWorkFactory
}

// NewTransferFileService creates a new transfer file service
func NewTransferFileService(uowFactory UnitOfWorkFactory) TransferFileService {
	return &transferFileService{
		uowFactory: uowFactory,
	}
}

func (s *transferFileService) Export(ctx context.Context, sessionID int64) (*TransferFile, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	detail, err := uow.SessionRepository().GetDetailByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session detail: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	transfers, err := uow.SettlementTransferRepository().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement transfers: %w", err)
	}

	file := &TransferFile{
		FormatVersion: TransferFileFormatVersion,
		ExportedAt:    time.Now().UTC(),
		Session: TransferSession{
			Title:            detail.Session.Title,
			Location:         detail.Session.Location,
			GameType:         detail.Session.GameType,
			ChipsToCashRatio: detail.Session.ChipsToCashRatio,
			SmallBlind:       detail.Session.SmallBlind,
			BigBlind:         detail.Session.BigBlind,
			Ante:             detail.Session.Ante,
			RakeAmount:       detail.Session.RakeAmount,
			TipsAmount:       detail.Session.TipsAmount,
			TipsPaidFromBank: detail.Session.TipsPaidFromBank,
			StartedAt:        detail.Session.StartedAt,
		},
	}

	playerRefs := make(map[int64]string, len(detail.Players))
	for _, p := range detail.Players {
		ref := uuid.NewString()
		playerRefs[p.ID] = ref
		tp := TransferPlayer{
			Ref:          ref,
			Name:         p.Name,
			InGame:       p.InGame,
			GetsRakeback: p.GetsRakeback,
			Rakeback:     p.Rakeback,
		}
		for _, tx := range p.Transactions {
			tp.Transactions = append(tp.Transactions, TransferChipTx{Type: tx.Type, Amount: tx.Amount})
		}
		file.Players = append(file.Players, tp)
	}

	expenseRefs := make(map[int64]string, len(detail.Expenses))
	for _, e := range detail.Expenses {
		ref := uuid.NewString()
		expenseRefs[e.ID] = ref
		te := TransferExpense{
			Ref:          ref,
			Amount:       e.Amount,
			Note:         e.Note,
			PayerRef:     refFor(playerRefs, e.PayerID),
			PaidFromRake: e.PaidFromRake,
			PaidFromBank: e.PaidFromBank,
		}
		for _, d := range e.Distributions {
			te.Distributions = append(te.Distributions, TransferShare{
				PlayerRef: playerRefs[d.PlayerID],
				Amount:    d.Amount,
			})
		}
		file.Expenses = append(file.Expenses, te)
	}

	if detail.Bank != nil {
		tb := &TransferBank{
			ManagerRef:    refFor(playerRefs, detail.Bank.ManagerPlayerID),
			IsClosed:      detail.Bank.IsClosed,
			ExpectedTotal: detail.Bank.ExpectedTotal,
		}
		for _, tx := range detail.Bank.Transactions {
			tb.Transactions = append(tb.Transactions, TransferBankTx{
				PlayerRef:  refFor(playerRefs, tx.PlayerID),
				Type:       tx.Type,
				Amount:     tx.Amount,
				Note:       tx.Note,
				ExpenseRef: refFor(expenseRefs, tx.ExpenseID),
			})
		}
		file.Bank = tb
	}

	for _, t := range transfers {
		file.Settlements = append(file.Settlements, TransferSettle{
			FromRef:     refFor(playerRefs, t.FromPlayerID),
			ToRef:       refFor(playerRefs, t.ToPlayerID),
			Amount:      t.Amount,
			Type:        t.Type,
			IsCompleted: t.IsCompleted,
			Note:        t.Note,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return file, nil
}

func (s *transferFileService) Import(ctx context.Context, file *TransferFile) (*models.Session, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: no document", ErrValidation)
	}
	if file.FormatVersion != TransferFileFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrIntegrity, file.FormatVersion)
	}
	if file.Session.Title == "" {
		return nil, fmt.Errorf("%w: document session has no title", ErrIntegrity)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	startedAt := file.Session.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	session := &models.Session{
		Title:            file.Session.Title,
		Location:         file.Session.Location,
		GameType:         file.Session.GameType,
		ChipsToCashRatio: file.Session.ChipsToCashRatio,
		SmallBlind:       file.Session.SmallBlind,
		BigBlind:         file.Session.BigBlind,
		Ante:             file.Session.Ante,
		RakeAmount:       file.Session.RakeAmount,
		TipsAmount:       file.Session.TipsAmount,
		TipsPaidFromBank: file.Session.TipsPaidFromBank,
		StartedAt:        startedAt,
	}
	if session.ChipsToCashRatio < 1 {
		return nil, fmt.Errorf("%w: document has chips-to-cash ratio %d", ErrIntegrity, session.ChipsToCashRatio)
	}
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Every ref in the document must resolve within the document; one dangling
	// reference aborts the whole import so nothing half-built is persisted.
	playerIDs := make(map[string]int64, len(file.Players))
	for _, tp := range file.Players {
		if tp.Ref == "" || tp.Name == "" {
			return nil, fmt.Errorf("%w: player entry missing ref or name", ErrIntegrity)
		}
		if _, dup := playerIDs[tp.Ref]; dup {
			return nil, fmt.Errorf("%w: duplicate player ref %s", ErrIntegrity, tp.Ref)
		}
		player := &models.Player{
			SessionID:    session.ID,
			Name:         tp.Name,
			InGame:       tp.InGame,
			GetsRakeback: tp.GetsRakeback,
			Rakeback:     tp.Rakeback,
		}
		if err := uow.PlayerRepository().Create(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}
		playerIDs[tp.Ref] = player.ID

		for _, tx := range tp.Transactions {
			chipTx := &models.ChipTransaction{
				PlayerID: player.ID,
				Type:     tx.Type,
				Amount:   tx.Amount,
			}
			if err := uow.PlayerRepository().AddChipTransaction(ctx, chipTx); err != nil {
				return nil, fmt.Errorf("failed to create chip transaction: %w", err)
			}
		}
	}

	expenseIDs := make(map[string]int64, len(file.Expenses))
	for _, te := range file.Expenses {
		if te.Ref == "" {
			return nil, fmt.Errorf("%w: expense entry missing ref", ErrIntegrity)
		}
		payerID, err := resolveRef(playerIDs, te.PayerRef, "expense payer")
		if err != nil {
			return nil, err
		}
		expense := &models.Expense{
			SessionID:    session.ID,
			Amount:       te.Amount,
			Note:         te.Note,
			PayerID:      payerID,
			PaidFromRake: te.PaidFromRake,
			PaidFromBank: te.PaidFromBank,
		}
		if err := uow.ExpenseRepository().Create(ctx, expense); err != nil {
			return nil, fmt.Errorf("failed to create expense: %w", err)
		}
		expenseIDs[te.Ref] = expense.ID

		distributions := make([]*models.ExpenseDistribution, 0, len(te.Distributions))
		for _, share := range te.Distributions {
			pid, ok := playerIDs[share.PlayerRef]
			if !ok {
				return nil, fmt.Errorf("%w: expense share references unknown player %s", ErrIntegrity, share.PlayerRef)
			}
			distributions = append(distributions, &models.ExpenseDistribution{
				ExpenseID: expense.ID,
				PlayerID:  pid,
				Amount:    share.Amount,
			})
		}
		if len(distributions) > 0 {
			if err := uow.ExpenseRepository().ReplaceDistributions(ctx, expense.ID, distributions); err != nil {
				return nil, fmt.Errorf("failed to create distributions: %w", err)
			}
		}
	}

	if file.Bank != nil {
		bank, err := uow.SessionBankRepository().GetOrCreateBySession(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create bank: %w", err)
		}
		managerID, err := resolveRef(playerIDs, file.Bank.ManagerRef, "bank manager")
		if err != nil {
			return nil, err
		}
		bank.ManagerPlayerID = managerID
		bank.IsClosed = file.Bank.IsClosed
		bank.ExpectedTotal = file.Bank.ExpectedTotal
		if err := uow.SessionBankRepository().Update(ctx, bank); err != nil {
			return nil, fmt.Errorf("failed to update bank: %w", err)
		}

		for _, tx := range file.Bank.Transactions {
			playerID, err := resolveRef(playerIDs, tx.PlayerRef, "bank transaction player")
			if err != nil {
				return nil, err
			}
			expenseID, err := resolveRef(expenseIDs, tx.ExpenseRef, "bank transaction expense")
			if err != nil {
				return nil, err
			}
			bankTx := &models.SessionBankTransaction{
				BankID:    bank.ID,
				PlayerID:  playerID,
				Type:      tx.Type,
				Amount:    tx.Amount,
				Note:      tx.Note,
				ExpenseID: expenseID,
			}
			if err := uow.SessionBankRepository().AddTransaction(ctx, bankTx); err != nil {
				return nil, fmt.Errorf("failed to create bank transaction: %w", err)
			}
		}
	}

	for _, ts := range file.Settlements {
		fromID, err := resolveRef(playerIDs, ts.FromRef, "settlement source")
		if err != nil {
			return nil, err
		}
		toID, err := resolveRef(playerIDs, ts.ToRef, "settlement target")
		if err != nil {
			return nil, err
		}
		transfer := &models.SettlementTransfer{
			SessionID:    session.ID,
			FromPlayerID: fromID,
			ToPlayerID:   toID,
			Amount:       ts.Amount,
			Type:         ts.Type,
			IsCompleted:  ts.IsCompleted,
			Note:         ts.Note,
		}
		if ts.IsCompleted {
			now := time.Now().UTC()
			transfer.CompletedAt = &now
		}
		if err := uow.SettlementTransferRepository().Create(ctx, transfer); err != nil {
			return nil, fmt.Errorf("failed to create settlement transfer: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

// refFor maps an optional database ID to its document ref
func refFor(refs map[int64]string, id *int64) *string {
	if id == nil {
		return nil
	}
	ref, ok := refs[*id]
	if !ok {
		return nil
	}
	return &ref
}

// resolveRef maps an optional document ref back to its new database ID
func resolveRef(ids map[string]int64, ref *string, what string) (*int64, error) {
	if ref == nil {
		return nil, nil
	}
	id, ok := ids[*ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s references unknown ref %s", ErrIntegrity, what, *ref)
	}
	return &id, nil
}
