package notify

import (
	"context"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher is the outbound-messaging boundary used by the reconciler and
// the auction service. Delivery is fire-and-forget: implementations log
// failures and never propagate them, so a dropped notification can never roll
// back or retry a settlement mutation.
type Dispatcher interface {
	Notify(ctx context.Context, recipient, subject, body, htmlBody string)
}

// NotificationPublisher publishes notification messages to the outbound channel
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg *models.NotificationMessage) error
}

// EventDispatcher hands notifications to the notifications topic, where the
// delivery worker picks them up.
type EventDispatcher struct {
	publisher NotificationPublisher
	logger    *zap.Logger
}

// NewEventDispatcher creates a new event-backed dispatcher
func NewEventDispatcher(publisher NotificationPublisher) *EventDispatcher {
	return &EventDispatcher{
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Notify publishes the message and swallows any failure
func (d *EventDispatcher) Notify(ctx context.Context, recipient, subject, body, htmlBody string) {
	msg := &models.NotificationMessage{
		MessageID: uuid.New().String(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		HTMLBody:  htmlBody,
		CreatedAt: time.Now(),
	}

	if err := d.publisher.PublishNotification(ctx, msg); err != nil {
		util.NotificationsDroppedTotal.Inc()
		d.logger.Warn("Notification dropped",
			zap.String("recipient", recipient),
			zap.String("subject", subject),
			zap.String("body", Truncate(body, 200)),
			zap.Error(err))
		return
	}

	util.NotificationsPublishedTotal.Inc()
}

// Truncate shortens a message body for log lines
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
