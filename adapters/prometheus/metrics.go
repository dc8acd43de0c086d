// Package prometheus exports relay signals and health as Prometheus metrics.
package prometheus

import (
	"context"
	"time"

	relay "github.com/RCK777-BALL/WorkPro3-sub006"
	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// Metrics implements relay.NotificationService by counting signals.
type Metrics struct {
	retrySuccess     prometheus.Counter
	retryScheduled   prometheus.Counter
	retryDelay       prometheus.Histogram
	deadLetters      *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
}

var _ relay.NotificationService = (*Metrics)(nil)

// NewMetrics creates the signal counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		retrySuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_success_total",
			Help:      "Queued messages delivered by the retry scheduler.",
		}),
		retryScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_scheduled_total",
			Help:      "Failed retries rescheduled with backoff.",
		}),
		retryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Backoff plus jitter chosen for rescheduled retries.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		deadLetters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_letters_total",
			Help:      "Messages dropped without delivery, by reason.",
		}, []string{"reason"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Direct publishes that failed and fell back to the retry queue, by topic.",
		}, []string{"topic"}),
	}

	for _, c := range []prometheus.Collector{m.retrySuccess, m.retryScheduled, m.retryDelay, m.deadLetters, m.deliveryFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NotifyRetrySuccess counts a delivered retry.
func (m *Metrics) NotifyRetrySuccess(_ context.Context, _ model.QueuedMessage) error {
	m.retrySuccess.Inc()
	return nil
}

// NotifyRetryScheduled counts a rescheduled retry and observes its delay.
func (m *Metrics) NotifyRetryScheduled(_ context.Context, _ model.QueuedMessage, delay time.Duration) error {
	m.retryScheduled.Inc()
	m.retryDelay.Observe(delay.Seconds())
	return nil
}

// NotifyDeadLetter counts a dead letter by reason.
func (m *Metrics) NotifyDeadLetter(_ context.Context, dl model.DeadLetter) error {
	m.deadLetters.WithLabelValues(dl.Reason).Inc()
	return nil
}

// NotifyDeliveryFailure counts a failed direct publish by topic.
func (m *Metrics) NotifyDeliveryFailure(_ context.Context, topic string, _ error) error {
	m.deliveryFailures.WithLabelValues(topic).Inc()
	return nil
}

// RegisterHealth exports the health snapshot as gauges read on every scrape.
func RegisterHealth(reg prometheus.Registerer, health func() model.HealthSnapshot) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Messages waiting in the retry queue.",
		}, func() float64 { return float64(health().QueueDepth) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backpressure",
			Help:      "1 while the retry queue is near capacity.",
		}, func() float64 { return boolValue(health().Backpressure) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "producer_ready",
			Help:      "1 while the broker producer connection is ready.",
		}, func() float64 { return boolValue(health().ProducerReady) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consumer_ready",
			Help:      "1 while broker subscriptions are established.",
		}, func() float64 { return boolValue(health().ConsumerReady) }),
	}

	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
