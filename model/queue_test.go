package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueuedMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"workOrder":"WO-17"}`)

	msg := NewQueuedMessage("id-1", "workorders", payload, "producer unavailable", now)

	assert.Equal(t, "id-1", msg.ID)
	assert.Equal(t, "workorders", msg.Topic)
	assert.JSONEq(t, `{"workOrder":"WO-17"}`, string(msg.Payload))
	assert.Equal(t, 0, msg.Attempts)
	assert.Equal(t, now, msg.EnqueuedAt)
	assert.Equal(t, now, msg.NextAttemptAt)
	assert.Equal(t, "producer unavailable", msg.LastError)
	assert.True(t, msg.IsDue(now))
}

func TestQueuedMessage_RecordFailure(t *testing.T) {
	tests := []struct {
		name             string
		initialAttempts  int
		err              error
		expectedAttempts int
		expectedError    string
	}{
		{
			name:             "First failure with error",
			initialAttempts:  0,
			err:              errors.New("broker timeout"),
			expectedAttempts: 1,
			expectedError:    "broker timeout",
		},
		{
			name:             "Failure without error keeps previous reason",
			initialAttempts:  2,
			err:              nil,
			expectedAttempts: 3,
			expectedError:    "previous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := QueuedMessage{Attempts: tt.initialAttempts, LastError: "previous"}
			msg.RecordFailure(tt.err)

			assert.Equal(t, tt.expectedAttempts, msg.Attempts)
			assert.Equal(t, tt.expectedError, msg.LastError)
		})
	}
}

func TestQueuedMessage_ScheduleRetry(t *testing.T) {
	enqueued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := NewQueuedMessage("id", "t", json.RawMessage(`1`), "", enqueued)

	msg.ScheduleRetry(enqueued.Add(time.Second), 4*time.Second)
	assert.Equal(t, enqueued.Add(5*time.Second), msg.NextAttemptAt)
	assert.False(t, msg.IsDue(enqueued.Add(4*time.Second)))
	assert.True(t, msg.IsDue(enqueued.Add(5*time.Second)))

	// A clock that went backwards must not move the attempt before enqueue time.
	msg.ScheduleRetry(enqueued.Add(-time.Hour), time.Second)
	assert.Equal(t, enqueued, msg.NextAttemptAt)
}

func TestQueuedMessage_ShouldDeadLetter(t *testing.T) {
	msg := QueuedMessage{}
	for attempt := 1; attempt <= 3; attempt++ {
		msg.RecordFailure(errors.New("fail"))
		assert.Equal(t, attempt >= 3, msg.ShouldDeadLetter(3), "attempt %d", attempt)
	}
}

func TestQueuedMessage_JSONSnapshotShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := NewQueuedMessage("id-9", "inventory", json.RawMessage(`{"sku":"A1"}`), "", now)

	data, err := json.Marshal([]QueuedMessage{msg})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":{"sku":"A1"}`)
	assert.NotContains(t, string(data), "lastError")

	var restored []QueuedMessage
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Len(t, restored, 1)
	assert.Equal(t, msg.ID, restored[0].ID)
	assert.True(t, msg.EnqueuedAt.Equal(restored[0].EnqueuedAt))
}

func TestChunkMetadata_Valid(t *testing.T) {
	tests := []struct {
		name  string
		chunk ChunkMetadata
		valid bool
	}{
		{"valid", ChunkMetadata{ID: "x", Index: 1, Total: 2, Checksum: "c"}, true},
		{"missing id", ChunkMetadata{Index: 0, Total: 1, Checksum: "c"}, false},
		{"missing checksum", ChunkMetadata{ID: "x", Index: 0, Total: 1}, false},
		{"zero total", ChunkMetadata{ID: "x", Index: 0, Total: 0, Checksum: "c"}, false},
		{"index out of range", ChunkMetadata{ID: "x", Index: 2, Total: 2, Checksum: "c"}, false},
		{"negative index", ChunkMetadata{ID: "x", Index: -1, Total: 2, Checksum: "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.chunk.Valid())
		})
	}
}

func TestNewDeadLetter(t *testing.T) {
	enqueued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := NewQueuedMessage("id-3", "workorders", json.RawMessage(`{"a":1}`), "", enqueued)
	msg.RecordFailure(errors.New("connection refused"))

	dl := NewDeadLetter(msg, ReasonMaxAttempts, enqueued.Add(time.Minute))

	assert.Equal(t, int64(0), dl.ID)
	assert.Equal(t, "id-3", dl.MessageID)
	assert.Equal(t, "workorders", dl.Topic)
	assert.Equal(t, `{"a":1}`, dl.Payload)
	assert.Equal(t, 1, dl.Attempts)
	assert.Equal(t, "connection refused", dl.LastError)
	assert.Equal(t, ReasonMaxAttempts, dl.Reason)
	assert.Equal(t, enqueued, dl.EnqueuedAt)
	assert.Equal(t, enqueued.Add(time.Minute), dl.DeadLetteredAt)
	assert.Equal(t, "relay_dead_letters", dl.TableName())
}
