package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueStore_LoadMissingFile(t *testing.T) {
	store := NewQueueStore(filepath.Join(t.TempDir(), "missing.json"))

	items, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestQueueStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "relay-queue.json")
	store := NewQueueStore(path)
	assert.Equal(t, path, store.Path())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := model.NewQueuedMessage("a", "workorders", json.RawMessage(`{"id":1}`), "producer unavailable", now)
	second := model.NewQueuedMessage("b", "inventory", json.RawMessage(`{"sku":"X"}`), "timeout", now)
	second.Attempts = 2
	second.NextAttemptAt = now.Add(4 * time.Second)

	require.NoError(t, store.Save(ctx, []model.QueuedMessage{first, second}))

	items, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
	assert.Equal(t, 2, items[1].Attempts)
	assert.JSONEq(t, `{"sku":"X"}`, string(items[1].Payload))
	assert.True(t, items[1].NextAttemptAt.Equal(now.Add(4*time.Second)))

	_, err = os.Stat(path + TempExtension)
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")
}

func TestQueueStore_SaveEmptyWritesArray(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "q.json")
	store := NewQueueStore(path)

	require.NoError(t, store.Save(ctx, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestQueueStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewQueueStore(filepath.Join(t.TempDir(), "q.json"))
	now := time.Now()

	require.NoError(t, store.Save(ctx, []model.QueuedMessage{
		model.NewQueuedMessage("a", "t", json.RawMessage(`1`), "", now),
		model.NewQueuedMessage("b", "t", json.RawMessage(`2`), "", now),
	}))
	require.NoError(t, store.Save(ctx, []model.QueuedMessage{
		model.NewQueuedMessage("b", "t", json.RawMessage(`2`), "", now),
	}))

	items, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestQueueStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewQueueStore(path).Load(context.Background())
	assert.Error(t, err)
}
