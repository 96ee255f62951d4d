package service

import (
	"context"
	"fmt"

	"wingman/events"
	"wingman/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type notificationService struct {
	uowFactory UnitOfWorkFactory
}

// NewNotificationService creates a new notification service
func NewNotificationService(uowFactory UnitOfWorkFactory) NotificationService {
	return &notificationService{uowFactory: uowFactory}
}

func (s *notificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	notifications, err := uow.NotificationRepository().ListForUser(ctx, userID, unreadOnly, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	found, err := uow.NotificationRepository().MarkRead(ctx, userID, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
	}

	return uow.Commit()
}

// NotificationWriter turns domain events into in-app notifications
type NotificationWriter struct {
	uowFactory UnitOfWorkFactory
}

func NewNotificationWriter(uowFactory UnitOfWorkFactory) *NotificationWriter {
	return &NotificationWriter{uowFactory: uowFactory}
}

// Register subscribes the writer to the events that notify users
func (w *NotificationWriter) Register(bus *events.Bus) {
	for _, eventType := range []events.EventType{
		events.EventTypeFriendRequested,
		events.EventTypeFriendshipAccepted,
		events.EventTypeMatchProposed,
		events.EventTypeMarketCreated,
		events.EventTypeMarketResolved,
		events.EventTypeVouchChanged,
	} {
		bus.Subscribe(eventType, w.Handle)
	}
}

// Handle writes the notifications for one event. Failures are logged, not returned.
func (w *NotificationWriter) Handle(ctx context.Context, event events.Event) {
	notifications := NotificationsFor(event)
	if len(notifications) == 0 {
		return
	}

	if err := w.write(ctx, notifications); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"count":     len(notifications),
			"error":     err,
		}).Error("Failed to write notifications")
	}
}

func (w *NotificationWriter) write(ctx context.Context, notifications []*models.Notification) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	for _, n := range notifications {
		if err := uow.NotificationRepository().Create(ctx, n); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}
	return uow.Commit()
}

// NotificationsFor maps an event to the notifications it produces
func NotificationsFor(event events.Event) []*models.Notification {
	var out []*models.Notification
	add := func(userID uuid.UUID, kind models.NotificationKind, payload map[string]any) {
		out = append(out, &models.Notification{UserID: userID, Kind: kind, Payload: payload})
	}

	switch e := event.(type) {
	case events.FriendRequestedEvent:
		add(e.AddresseeID, models.NotificationKindFriendRequest, map[string]any{
			"friendshipId": e.FriendshipID.String(),
			"fromUserId":   e.RequesterID.String(),
		})
	case events.FriendshipAcceptedEvent:
		add(e.RequesterID, models.NotificationKindFriendAccepted, map[string]any{
			"friendshipId": e.FriendshipID.String(),
			"friendId":     e.AddresseeID.String(),
		})
	case events.MatchProposedEvent:
		payload := map[string]any{
			"matchId":      e.MatchID.String(),
			"matchmakerId": e.MatchmakerID.String(),
		}
		add(e.UserAID, models.NotificationKindMatchProposed, payload)
		add(e.UserBID, models.NotificationKindMatchProposed, payload)
	case events.MarketCreatedEvent:
		payload := map[string]any{
			"marketId": e.MarketID.String(),
			"matchId":  e.MatchID.String(),
			"title":    e.Title,
		}
		add(e.MatchmakerID, models.NotificationKindMarketCreated, payload)
		add(e.UserAID, models.NotificationKindMarketCreated, payload)
		add(e.UserBID, models.NotificationKindMarketCreated, payload)
	case events.MarketResolvedEvent:
		won := make(map[uuid.UUID]decimal.Decimal, len(e.Payouts))
		for _, p := range e.Payouts {
			won[p.BettorID] = won[p.BettorID].Add(p.Amount)
		}
		for _, bettorID := range e.BettorIDs {
			payload := map[string]any{
				"marketId": e.MarketID.String(),
				"title":    e.Title,
				"outcome":  e.Outcome,
			}
			if amount, ok := won[bettorID]; ok {
				payload["payout"] = amount.String()
			}
			add(bettorID, models.NotificationKindMarketResolved, payload)
		}
	case events.VouchChangedEvent:
		if e.NewPoints > e.OldPoints {
			add(e.VoucheeID, models.NotificationKindVouchReceived, map[string]any{
				"voucherId": e.VoucherID.String(),
				"points":    e.NewPoints,
			})
		}
	}
	return out
}
