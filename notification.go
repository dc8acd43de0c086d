package relay

import (
	"context"
	"errors"
	"time"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
)

// Signal names emitted by the retry path.
const (
	SignalRetrySuccess    = "retry.success"
	SignalRetryScheduled  = "retry.scheduled"
	SignalDeadLetter      = "retry.deadletter"
	SignalDeliveryFailure = "delivery.failure"
)

// NotificationService receives the relay's delivery signals.
//
// Implementations might log, export metrics or page someone. Errors are logged
// by the relay and never affect delivery.
type NotificationService interface {
	// NotifyRetrySuccess is called when a queued message is delivered.
	NotifyRetrySuccess(ctx context.Context, msg model.QueuedMessage) error

	// NotifyRetryScheduled is called when a failed retry is rescheduled after delay.
	NotifyRetryScheduled(ctx context.Context, msg model.QueuedMessage, delay time.Duration) error

	// NotifyDeadLetter is called when a message is dropped for good.
	NotifyDeadLetter(ctx context.Context, dl model.DeadLetter) error

	// NotifyDeliveryFailure is called when a direct publish fails and the
	// message falls back to the retry queue.
	NotifyDeliveryFailure(ctx context.Context, topic string, err error) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
type NoOpNotificationService struct{}

// NotifyRetrySuccess does nothing.
func (n *NoOpNotificationService) NotifyRetrySuccess(_ context.Context, _ model.QueuedMessage) error {
	return nil
}

// NotifyRetryScheduled does nothing.
func (n *NoOpNotificationService) NotifyRetryScheduled(_ context.Context, _ model.QueuedMessage, _ time.Duration) error {
	return nil
}

// NotifyDeadLetter does nothing.
func (n *NoOpNotificationService) NotifyDeadLetter(_ context.Context, _ model.DeadLetter) error {
	return nil
}

// NotifyDeliveryFailure does nothing.
func (n *NoOpNotificationService) NotifyDeliveryFailure(_ context.Context, _ string, _ error) error {
	return nil
}

// LoggingNotificationService logs every signal.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifyRetrySuccess logs a delivered retry.
func (n *LoggingNotificationService) NotifyRetrySuccess(_ context.Context, msg model.QueuedMessage) error {
	n.logger.Infof("%s: id=%s topic=%s attempts=%d", SignalRetrySuccess, msg.ID, msg.Topic, msg.Attempts)
	return nil
}

// NotifyRetryScheduled logs a rescheduled retry.
func (n *LoggingNotificationService) NotifyRetryScheduled(_ context.Context, msg model.QueuedMessage, delay time.Duration) error {
	n.logger.Infof("%s: id=%s topic=%s attempts=%d delay=%v error=%s",
		SignalRetryScheduled, msg.ID, msg.Topic, msg.Attempts, delay, msg.LastError)
	return nil
}

// NotifyDeadLetter logs a dead letter.
func (n *LoggingNotificationService) NotifyDeadLetter(_ context.Context, dl model.DeadLetter) error {
	n.logger.Warnf("%s: id=%s topic=%s attempts=%d reason=%s error=%s",
		SignalDeadLetter, dl.MessageID, dl.Topic, dl.Attempts, dl.Reason, dl.LastError)
	return nil
}

// NotifyDeliveryFailure logs a failed direct publish.
func (n *LoggingNotificationService) NotifyDeliveryFailure(_ context.Context, topic string, err error) error {
	n.logger.Warnf("%s: topic=%s error=%v", SignalDeliveryFailure, topic, err)
	return nil
}

// NotificationFanout forwards every signal to several services.
type NotificationFanout []NotificationService

// NotifyRetrySuccess forwards to every service.
func (f NotificationFanout) NotifyRetrySuccess(ctx context.Context, msg model.QueuedMessage) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.NotifyRetrySuccess(ctx, msg))
	}
	return errors.Join(errs...)
}

// NotifyRetryScheduled forwards to every service.
func (f NotificationFanout) NotifyRetryScheduled(ctx context.Context, msg model.QueuedMessage, delay time.Duration) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.NotifyRetryScheduled(ctx, msg, delay))
	}
	return errors.Join(errs...)
}

// NotifyDeadLetter forwards to every service.
func (f NotificationFanout) NotifyDeadLetter(ctx context.Context, dl model.DeadLetter) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.NotifyDeadLetter(ctx, dl))
	}
	return errors.Join(errs...)
}

// NotifyDeliveryFailure forwards to every service.
func (f NotificationFanout) NotifyDeliveryFailure(ctx context.Context, topic string, err error) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.NotifyDeliveryFailure(ctx, topic, err))
	}
	return errors.Join(errs...)
}
