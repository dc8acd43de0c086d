package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/RCK777-BALL/WorkPro3-sub006/chunk"
	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/benbjohnson/clock"
)

// Publisher sends application events to the broker.
//
// Publish never fails from the caller's point of view: anything that cannot
// be delivered right now goes to the RetryQueue. Payloads whose serialized size
// exceeds the chunk size are split into chunk envelopes, each sent as its own
// wire message.
//
// Thread safety: Safe for concurrent use.
type Publisher struct {
	enabled   bool
	chunkSize int
	producer  Producer
	conn      *connection
	queue     *RetryQueue
	notifier  NotificationService
	logger    Logger
	clock     clock.Clock
	newID     func() string

	mu          sync.RWMutex
	lastFailure *model.Failure
}

// Publish serializes payload and delivers it, queueing it for retry when the
// broker is unavailable or the send fails.
//
// The process:
//  1. Drop when the relay is disabled
//  2. Serialize to JSON (a payload that cannot be serialized is logged and dropped)
//  3. Queue with reason "producer unavailable" while the connection is not ready
//  4. Send as one message, or as chunks above the chunk size
//  5. On send failure queue the whole message and record the failure
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) {
	if !p.enabled {
		p.logger.Debugf("Relay disabled, dropping message for topic %s", topic)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Errorf("Failed to serialize payload for topic %s: %v", topic, err)
		p.recordFailure(topic, err)
		return
	}

	if !p.conn.ready() {
		p.queue.Enqueue(ctx, topic, data, ReasonProducerUnavailable)
		return
	}

	if err := p.deliver(ctx, topic, data); err != nil {
		p.logger.Warnf("Publish to %s failed, queued for retry: %v", topic, err)
		p.queue.Enqueue(ctx, topic, data, err.Error())
		p.recordFailure(topic, err)
		if nerr := p.notifier.NotifyDeliveryFailure(ctx, topic, err); nerr != nil {
			p.logger.Errorf("Failed to send delivery failure notification: %v", nerr)
		}
	}
}

// deliver sends serialized data, chunking it when it exceeds the chunk size.
// A failure of any chunk fails the whole message.
func (p *Publisher) deliver(ctx context.Context, topic string, data []byte) error {
	if !p.conn.ready() {
		return ErrProducerUnavailable
	}

	if len(data) <= p.chunkSize {
		if err := p.producer.Send(ctx, topic, data); err != nil {
			return NewErrorWithCause(ErrCodeDelivery, fmt.Sprintf("send to %s failed", topic), err)
		}
		return nil
	}

	envelopes, err := chunk.Split(p.newID(), data, p.chunkSize)
	if err != nil {
		return NewErrorWithCause(ErrCodeDelivery, "failed to split payload", err)
	}

	for _, env := range envelopes {
		wire, err := chunk.Encode(env)
		if err != nil {
			return NewErrorWithCause(ErrCodeDelivery, "failed to encode chunk", err)
		}
		if err := p.producer.Send(ctx, topic, wire); err != nil {
			return NewErrorWithCause(ErrCodeDelivery,
				fmt.Sprintf("send of chunk %d/%d to %s failed", env.Chunk.Index+1, env.Chunk.Total, topic), err)
		}
	}

	p.logger.Debugf("Sent %d chunks for topic %s (%d bytes)", len(envelopes), topic, len(data))
	return nil
}

func (p *Publisher) recordFailure(topic string, err error) {
	f := &model.Failure{
		Topic: topic,
		Error: err.Error(),
		At:    p.clock.Now(),
	}

	p.mu.Lock()
	p.lastFailure = f
	p.mu.Unlock()
}

// LastFailure returns the most recent delivery failure, or nil.
func (p *Publisher) LastFailure() *model.Failure {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.lastFailure == nil {
		return nil
	}
	f := *p.lastFailure
	return &f
}
