package relay

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/RCK777-BALL/WorkPro3-sub006/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_DirectSend(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.connect(t)

	h.svc.Publish(context.Background(), "workorders", map[string]any{"id": 42, "status": "open"})

	sent := h.broker.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "workorders", sent[0].Topic)
	assert.JSONEq(t, `{"id":42,"status":"open"}`, string(sent[0].Value))
	assert.Equal(t, 0, h.svc.Health().QueueDepth)
	assert.Nil(t, h.svc.Health().LastFailure)
}

func TestPublisher_NotReadyQueues(t *testing.T) {
	h := newHarness(t, testConfig(t))

	h.svc.Publish(context.Background(), "workorders", map[string]int{"id": 1})

	assert.Empty(t, h.broker.Sent())
	snap := h.svc.queue.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, ReasonProducerUnavailable, snap[0].LastError)
	assert.Nil(t, h.svc.Health().LastFailure, "an unavailable producer is not a delivery failure")
	assert.Empty(t, h.notifier.failures)
}

func TestPublisher_SendFailureQueuesAndRecords(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.connect(t)
	h.broker.SetSendError(errBrokerDown)

	h.svc.Publish(context.Background(), "inventory", map[string]string{"sku": "A1"})

	snap := h.svc.queue.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "inventory", snap[0].Topic)
	assert.JSONEq(t, `{"sku":"A1"}`, string(snap[0].Payload))
	assert.Contains(t, snap[0].LastError, "broker down")

	failure := h.svc.Health().LastFailure
	require.NotNil(t, failure)
	assert.Equal(t, "inventory", failure.Topic)
	assert.Contains(t, failure.Error, "broker down")
	assert.Equal(t, h.clock.Now(), failure.At)
	assert.Equal(t, []string{"inventory"}, h.notifier.failures)
}

func TestPublisher_UnserializablePayloadIsDropped(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.connect(t)

	h.svc.Publish(context.Background(), "workorders", make(chan int))

	assert.Empty(t, h.broker.Sent())
	assert.Equal(t, 0, h.svc.Health().QueueDepth)
	require.NotNil(t, h.svc.Health().LastFailure)
	assert.Equal(t, "workorders", h.svc.Health().LastFailure.Topic)
}

func TestPublisher_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enabled = false
	h := newHarness(t, cfg)

	h.svc.Publish(context.Background(), "workorders", map[string]int{"id": 1})

	assert.Empty(t, h.broker.Sent())
	assert.Equal(t, 0, h.svc.Health().QueueDepth)
	assert.False(t, h.svc.Health().Enabled)
}

// bigPayload returns a string whose JSON encoding is exactly n bytes.
func bigPayload(n int) string {
	return strings.Repeat("w", n-2)
}

func TestPublisher_ChunksLargePayload(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChunkSize = 50000
	h := newHarness(t, cfg)
	h.connect(t)

	body := bigPayload(600000)
	h.svc.Publish(context.Background(), "workorders", body)

	sent := h.broker.Sent()
	require.Len(t, sent, 12)

	seen := make(map[int]bool)
	for _, m := range sent {
		env, ok := chunk.ParseEnvelope(m.Value)
		require.True(t, ok, "every wire message is a chunk envelope")
		assert.Equal(t, 12, env.Chunk.Total)
		assert.Equal(t, "m1", env.Chunk.ID)

		data, err := chunk.Decode(env)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(data), 50000)
		seen[env.Chunk.Index] = true
	}
	assert.Len(t, seen, 12)
}

func TestPublisher_ChunkFailureQueuesWholeMessage(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChunkSize = 50000
	h := newHarness(t, cfg)
	h.connect(t)
	h.broker.FailNextSends(1, errBrokerDown)

	h.svc.Publish(context.Background(), "workorders", bigPayload(120000))

	snap := h.svc.queue.Snapshot()
	require.Len(t, snap, 1)
	assert.Len(t, snap[0].Payload, 120000)

	var decoded string
	require.NoError(t, json.Unmarshal(snap[0].Payload, &decoded))
	assert.Len(t, decoded, 119998)
}

func TestPublisher_PayloadAtThresholdIsNotChunked(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChunkSize = 1000
	h := newHarness(t, cfg)
	h.connect(t)

	h.svc.Publish(context.Background(), "t", bigPayload(1000))

	sent := h.broker.Sent()
	require.Len(t, sent, 1)
	_, isChunk := chunk.ParseEnvelope(sent[0].Value)
	assert.False(t, isChunk)
}
