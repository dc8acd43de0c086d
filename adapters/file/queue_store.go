// Package file persists the retry queue as a JSON array on local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
)

// TempExtension is appended to the snapshot path while a new snapshot is written.
const TempExtension = ".tmp"

// QueueStore implements relay.QueueStore with a single JSON file.
//
// Snapshots are written to a temp file, synced, then renamed over the
// previous one, so a crash leaves either the old or the new snapshot.
type QueueStore struct {
	path string
}

// NewQueueStore creates a store writing to path. Parent directories are
// created on the first save.
func NewQueueStore(path string) *QueueStore {
	return &QueueStore{path: path}
}

// Path returns the snapshot file location.
func (s *QueueStore) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file is an empty queue.
func (s *QueueStore) Load(_ context.Context) ([]model.QueuedMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.QueuedMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue snapshot: %w", err)
	}
	if len(data) == 0 {
		return []model.QueuedMessage{}, nil
	}

	var items []model.QueuedMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse queue snapshot %s: %w", s.path, err)
	}
	if items == nil {
		items = []model.QueuedMessage{}
	}
	return items, nil
}

// Save replaces the snapshot with items.
func (s *QueueStore) Save(_ context.Context, items []model.QueuedMessage) error {
	if items == nil {
		items = []model.QueuedMessage{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal queue snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create queue snapshot dir: %w", err)
	}

	tempPath := s.path + TempExtension
	if err := writeSynced(tempPath, data); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write queue snapshot: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename queue snapshot: %w", err)
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
