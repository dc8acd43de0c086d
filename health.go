package relay

import "github.com/RCK777-BALL/WorkPro3-sub006/model"

// HealthReporter aggregates connection state, queue depth and backpressure.
type HealthReporter struct {
	enabled   bool
	producer  *connection
	consumer  *connection
	queue     *RetryQueue
	publisher *Publisher
}

// Health returns the current snapshot. It has no side effects.
func (h *HealthReporter) Health() model.HealthSnapshot {
	return model.HealthSnapshot{
		Enabled:       h.enabled,
		ProducerReady: h.producer.ready(),
		ConsumerReady: h.consumer.ready(),
		Backpressure:  h.queue.Backpressure(),
		QueueDepth:    h.queue.Len(),
		LastFailure:   h.publisher.LastFailure(),
	}
}
