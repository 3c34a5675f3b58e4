package events

import (
	"context"
	"sync"

	"chipledger/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeChipTransaction    EventType = "chip_transaction"
	EventTypeBankTransaction    EventType = "bank_transaction"
	EventTypeExpenseAdded       EventType = "expense_added"
	EventTypeExpenseDeleted     EventType = "expense_deleted"
	EventTypeExpenseDistributed EventType = "expense_distributed"
	EventTypeBankClosed         EventType = "bank_closed"
	EventTypeSettlementSaved    EventType = "settlement_saved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ChipTransactionEvent represents a chip movement recorded for a player
type ChipTransactionEvent struct {
	SessionID       int64
	PlayerID        int64
	PlayerName      string
	TransactionType models.ChipTransactionType
	Amount          int64
}

func (e ChipTransactionEvent) Type() EventType {
	return EventTypeChipTransaction
}

// BankTransactionEvent represents a cash movement through the session bank
type BankTransactionEvent struct {
	SessionID       int64
	BankID          int64
	PlayerID        *int64
	TransactionType models.BankTransactionType
	Amount          int64
}

func (e BankTransactionEvent) Type() EventType {
	return EventTypeBankTransaction
}

// ExpenseAddedEvent represents a shared expense being recorded
type ExpenseAddedEvent struct {
	SessionID int64
	ExpenseID int64
	Amount    int64
	PayerID   *int64
}

func (e ExpenseAddedEvent) Type() EventType {
	return EventTypeExpenseAdded
}

// ExpenseDeletedEvent represents a shared expense being removed
type ExpenseDeletedEvent struct {
	SessionID int64
	ExpenseID int64
	Amount    int64
}

func (e ExpenseDeletedEvent) Type() EventType {
	return EventTypeExpenseDeleted
}

// ExpenseDistributedEvent represents an expense whose shares were (re)assigned
type ExpenseDistributedEvent struct {
	SessionID    int64
	ExpenseID    int64
	Amount       int64
	PaidFromRake int64
	Participants int
}

func (e ExpenseDistributedEvent) Type() EventType {
	return EventTypeExpenseDistributed
}

// BankClosedEvent represents the session bank being closed or reopened
type BankClosedEvent struct {
	SessionID int64
	BankID    int64
	Closed    bool
}

func (e BankClosedEvent) Type() EventType {
	return EventTypeBankClosed
}

// SettlementSavedEvent represents a settlement plan being persisted
type SettlementSavedEvent struct {
	SessionID     int64
	TransferCount int
	BankCollects  int64
}

func (e SettlementSavedEvent) Type() EventType {
	return EventTypeSettlementSaved
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	// Events are processed independently of the transaction lifecycle, so an
	// expired transaction context must not cancel their delivery.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
