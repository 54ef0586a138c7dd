package worker

import (
	"context"
	"encoding/json"
	"time"

	"auction-service/internal/broker"
	"auction-service/internal/models"
	"auction-service/internal/notify"
	"auction-service/internal/service"
	"auction-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Locker guards a pass against overlapping runs of itself
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// PassWorker fires one reconciler pass on a fixed interval. The two passes
// are independent: each worker owns its own ticker and lock key and they
// coordinate only through the store.
type PassWorker struct {
	name     string
	interval time.Duration
	locks    Locker
	run      func(context.Context) error
	logger   *zap.Logger
}

// NewClosureWorker creates the worker driving the auction closure pass
func NewClosureWorker(settlement *service.SettlementService, locks Locker, interval time.Duration) *PassWorker {
	return &PassWorker{
		name:     "closure-pass",
		interval: interval,
		locks:    locks,
		run:      settlement.RunClosurePass,
		logger:   util.GetLogger(),
	}
}

// NewSettlementWorker creates the worker driving the commission settlement pass
func NewSettlementWorker(settlement *service.SettlementService, locks Locker, interval time.Duration) *PassWorker {
	return &PassWorker{
		name:     "settlement-pass",
		interval: interval,
		locks:    locks,
		run:      settlement.RunSettlementPass,
		logger:   util.GetLogger(),
	}
}

// Start runs the pass on every tick until the context is cancelled
func (w *PassWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting pass worker",
		zap.String("pass", w.name),
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Pass worker stopping", zap.String("pass", w.name))
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce runs the pass under the distributed lock. When the lock is held by
// a still-running pass the tick is skipped; the store's conditional updates
// make a skipped tick harmless.
func (w *PassWorker) runOnce(ctx context.Context) {
	if w.locks != nil {
		ok, err := w.locks.AcquireLock(ctx, w.name, w.interval)
		if err != nil {
			w.logger.Warn("Pass lock unavailable, skipping tick",
				zap.String("pass", w.name),
				zap.Error(err))
			return
		}
		if !ok {
			w.logger.Debug("Pass already running, skipping tick", zap.String("pass", w.name))
			return
		}
		defer func() {
			if err := w.locks.ReleaseLock(ctx, w.name); err != nil {
				w.logger.Warn("Failed to release pass lock",
					zap.String("pass", w.name),
					zap.Error(err))
			}
		}()
	}

	if err := w.run(ctx); err != nil {
		w.logger.Error("Pass run failed",
			zap.String("pass", w.name),
			zap.Error(err))
	}
}

// NotificationWorker consumes the notifications topic and delivers each
// message over SMTP. Delivery failures are logged and the message is dropped;
// there is no automatic retry of notifications.
type NotificationWorker struct {
	consumer *broker.Consumer
	mailer   *notify.Mailer
	logger   *zap.Logger
}

// NewNotificationWorker creates a new notification delivery worker
func NewNotificationWorker(consumer *broker.Consumer, mailer *notify.Mailer) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		mailer:   mailer,
		logger:   util.GetLogger(),
	}
}

// Start starts the delivery loop
func (nw *NotificationWorker) Start(ctx context.Context) error {
	nw.logger.Info("Starting notification worker")

	return nw.consumer.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		var notification models.NotificationMessage
		if err := json.Unmarshal(msg.Value, &notification); err != nil {
			nw.logger.Error("Failed to unmarshal notification", zap.Error(err))
			return nil
		}

		if err := nw.mailer.Send(notification.Recipient, notification.Subject, notification.Body, notification.HTMLBody); err != nil {
			util.NotificationsDroppedTotal.Inc()
			nw.logger.Warn("Notification delivery failed",
				zap.String("recipient", notification.Recipient),
				zap.String("subject", notification.Subject),
				zap.String("body", notify.Truncate(notification.Body, 200)),
				zap.Error(err))
		}

		// Always commit: notification failures are terminal for the attempt.
		return nil
	})
}

// Stop stops the worker
func (nw *NotificationWorker) Stop() error {
	nw.logger.Info("Stopping notification worker")
	return nw.consumer.Close()
}
