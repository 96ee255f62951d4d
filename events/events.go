package events

import (
	"context"
	"sync"
	"time"

	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserCreated         EventType = "user_created"
	EventTypeFriendRequested     EventType = "friend_requested"
	EventTypeFriendshipAccepted  EventType = "friendship_accepted"
	EventTypeMatchProposed       EventType = "match_proposed"
	EventTypeDateOutcomeReported EventType = "date_outcome_reported"
	EventTypeMarketCreated       EventType = "market_created"
	EventTypeMarketClosed        EventType = "market_closed"
	EventTypeMarketResolved      EventType = "market_resolved"
	EventTypeBetPlaced           EventType = "bet_placed"
	EventTypeVouchChanged        EventType = "vouch_changed"
	EventTypeVouchBudgetAdjusted EventType = "vouch_budget_adjusted"
)

// AllEventTypes lists every event type the service emits
var AllEventTypes = []EventType{
	EventTypeUserCreated,
	EventTypeFriendRequested,
	EventTypeFriendshipAccepted,
	EventTypeMatchProposed,
	EventTypeDateOutcomeReported,
	EventTypeMarketCreated,
	EventTypeMarketClosed,
	EventTypeMarketResolved,
	EventTypeBetPlaced,
	EventTypeVouchChanged,
	EventTypeVouchBudgetAdjusted,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

type UserCreatedEvent struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

type FriendRequestedEvent struct {
	FriendshipID uuid.UUID `json:"friendshipId"`
	RequesterID  uuid.UUID `json:"requesterId"`
	AddresseeID  uuid.UUID `json:"addresseeId"`
}

func (e FriendRequestedEvent) Type() EventType {
	return EventTypeFriendRequested
}

type FriendshipAcceptedEvent struct {
	FriendshipID uuid.UUID `json:"friendshipId"`
	RequesterID  uuid.UUID `json:"requesterId"`
	AddresseeID  uuid.UUID `json:"addresseeId"`
}

func (e FriendshipAcceptedEvent) Type() EventType {
	return EventTypeFriendshipAccepted
}

type MatchProposedEvent struct {
	MatchID      uuid.UUID `json:"matchId"`
	MatchmakerID uuid.UUID `json:"matchmakerId"`
	UserAID      uuid.UUID `json:"userAId"`
	UserBID      uuid.UUID `json:"userBId"`
}

func (e MatchProposedEvent) Type() EventType {
	return EventTypeMatchProposed
}

// DateOutcomeReportedEvent is emitted once a participant reports how the date went
type DateOutcomeReportedEvent struct {
	MatchID    uuid.UUID `json:"matchId"`
	ReporterID uuid.UUID `json:"reporterId"`
	UserAID    uuid.UUID `json:"userAId"`
	UserBID    uuid.UUID `json:"userBId"`
	Success    bool      `json:"success"`
}

func (e DateOutcomeReportedEvent) Type() EventType {
	return EventTypeDateOutcomeReported
}

type MarketCreatedEvent struct {
	MarketID     uuid.UUID `json:"marketId"`
	MatchID      uuid.UUID `json:"matchId"`
	MatchmakerID uuid.UUID `json:"matchmakerId"`
	UserAID      uuid.UUID `json:"userAId"`
	UserBID      uuid.UUID `json:"userBId"`
	Title        string    `json:"title"`
	ResolvesAt   time.Time `json:"resolvesAt"`
}

func (e MarketCreatedEvent) Type() EventType {
	return EventTypeMarketCreated
}

type MarketClosedEvent struct {
	MarketID uuid.UUID `json:"marketId"`
}

func (e MarketClosedEvent) Type() EventType {
	return EventTypeMarketClosed
}

// MarketResolvedEvent carries the full settlement so downstream consumers
// (escrow relay, archive, notifications) need no further reads
type MarketResolvedEvent struct {
	MarketID    uuid.UUID       `json:"marketId"`
	Title       string          `json:"title"`
	ResolverID  uuid.UUID       `json:"resolverId"`
	Outcome     bool            `json:"outcome"`
	Evidence    string          `json:"evidence,omitempty"`
	TotalPool   decimal.Decimal `json:"totalPool"`
	WinningPool decimal.Decimal `json:"winningPool"`
	Remainder   decimal.Decimal `json:"remainder"`
	Payouts     []models.Payout `json:"payouts"`
	BettorIDs   []uuid.UUID     `json:"bettorIds"`
	ResolvedAt  time.Time       `json:"resolvedAt"`
}

func (e MarketResolvedEvent) Type() EventType {
	return EventTypeMarketResolved
}

type BetPlacedEvent struct {
	BetID    uuid.UUID       `json:"betId"`
	MarketID uuid.UUID       `json:"marketId"`
	BettorID uuid.UUID       `json:"bettorId"`
	Position bool            `json:"position"`
	Amount   decimal.Decimal `json:"amount"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

type VouchChangedEvent struct {
	VoucherID   uuid.UUID       `json:"voucherId"`
	VoucheeID   uuid.UUID       `json:"voucheeId"`
	OldPoints   int             `json:"oldPoints"`
	NewPoints   int             `json:"newPoints"`
	BudgetAfter decimal.Decimal `json:"budgetAfter"`
}

func (e VouchChangedEvent) Type() EventType {
	return EventTypeVouchChanged
}

// VouchBudgetAdjustedEvent mirrors a vouch history entry
type VouchBudgetAdjustedEvent struct {
	UserID      uuid.UUID               `json:"userId"`
	EntryType   models.VouchHistoryType `json:"entryType"`
	Delta       decimal.Decimal         `json:"delta"`
	BudgetAfter decimal.Decimal         `json:"budgetAfter"`
}

func (e VouchBudgetAdjustedEvent) Type() EventType {
	return EventTypeVouchBudgetAdjusted
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

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run on their own
// goroutines and a panicking handler is recovered and logged.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

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

// TransactionalBus holds events raised inside a unit of work until it commits
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

// Pending returns the events waiting for commit
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	// Handlers outlive the request, so they get a fresh context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
