package broker

import (
	"context"
	"fmt"

	"auction-service/internal/models"
)

// EventPublisher publishes domain events and notification messages. Domain
// events and notifications ride separate topics so the notification worker
// never replays balance-affecting events.
type EventPublisher struct {
	events        *Producer
	notifications *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(events, notifications *Producer) *EventPublisher {
	return &EventPublisher{events: events, notifications: notifications}
}

// PublishBidPlaced publishes a BidPlaced event
func (ep *EventPublisher) PublishBidPlaced(ctx context.Context, event *models.BidPlacedEvent) error {
	key := fmt.Sprintf("auction-%d", event.AuctionID)
	return ep.events.PublishEvent(ctx, key, event)
}

// PublishAuctionClosed publishes an AuctionClosed event
func (ep *EventPublisher) PublishAuctionClosed(ctx context.Context, event *models.AuctionClosedEvent) error {
	key := fmt.Sprintf("auction-%d", event.AuctionID)
	return ep.events.PublishEvent(ctx, key, event)
}

// PublishCommissionSettled publishes a CommissionSettled event
func (ep *EventPublisher) PublishCommissionSettled(ctx context.Context, event *models.CommissionSettledEvent) error {
	key := fmt.Sprintf("user-%d", event.UserID)
	return ep.events.PublishEvent(ctx, key, event)
}

// PublishNotification publishes a notification message for the delivery worker
func (ep *EventPublisher) PublishNotification(ctx context.Context, msg *models.NotificationMessage) error {
	return ep.notifications.PublishEvent(ctx, msg.Recipient, msg)
}
