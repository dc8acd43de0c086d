package chunk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	partSuffix          = ".part"
	defaultCompletedLRU = 1024

	// DefaultMaxMessageSize bounds a reassembled payload unless WithMaxMessageSize is used.
	DefaultMaxMessageSize = 64 << 20
)

// assembly is the receive-side state of one chunk set.
type assembly struct {
	total        int
	checksum     string
	received     map[int]struct{}
	bytesWritten int64
	createdAt    time.Time
	path         string
}

func (a *assembly) matches(meta model.ChunkMetadata) bool {
	return a.total == meta.Total && a.checksum == meta.Checksum
}

func (a *assembly) complete() bool {
	return len(a.received) == a.total
}

// AssemblyStore reassembles chunk sets. Partial bytes are staged in one
// {id}.part file per set under dir; chunk i lands at offset i*chunkSize.
//
// Thread safety: safe for concurrent use.
type AssemblyStore struct {
	dir            string
	chunkSize      int
	maxMessageSize int64
	ttl            time.Duration
	clock          clock.Clock

	mu         sync.Mutex
	assemblies map[string]*assembly

	// completed remembers recently finished sets (id -> checksum) so that
	// redelivered chunks of a finished set do not open a new assembly.
	completed *lru.Cache[string, string]
}

// StoreOption configures an AssemblyStore.
type StoreOption func(*AssemblyStore) error

// WithClock sets the clock used for assembly ages.
func WithClock(c clock.Clock) StoreOption {
	return func(s *AssemblyStore) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.clock = c
		return nil
	}
}

// WithMaxMessageSize bounds the size of a reassembled payload. Envelopes
// announcing more chunks than such a payload needs are rejected.
func WithMaxMessageSize(size int64) StoreOption {
	return func(s *AssemblyStore) error {
		if size <= 0 {
			return fmt.Errorf("max message size must be positive")
		}
		s.maxMessageSize = size
		return nil
	}
}

// WithCompletedCacheSize sets how many finished sets are remembered for
// duplicate suppression.
func WithCompletedCacheSize(size int) StoreOption {
	return func(s *AssemblyStore) error {
		cache, err := lru.New[string, string](size)
		if err != nil {
			return err
		}
		s.completed = cache
		return nil
	}
}

// NewAssemblyStore creates the staging directory and returns an empty store.
func NewAssemblyStore(dir string, chunkSize int, ttl time.Duration, opts ...StoreOption) (*AssemblyStore, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}

	s := &AssemblyStore{
		dir:            dir,
		chunkSize:      chunkSize,
		maxMessageSize: DefaultMaxMessageSize,
		ttl:            ttl,
		clock:          clock.New(),
		assemblies:     make(map[string]*assembly),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.completed == nil {
		cache, err := lru.New[string, string](defaultCompletedLRU)
		if err != nil {
			return nil, err
		}
		s.completed = cache
	}

	return s, nil
}

// Accept stores one chunk. It returns the reassembled payload and true when the
// chunk completes its set; otherwise it returns nil and false ("no payload yet").
//
// A chunk whose total or checksum disagrees with the in-flight assembly for the
// same id discards that assembly and starts a new one. A completed set whose
// checksum does not match is discarded and ErrChecksumMismatch is returned.
func (s *AssemblyStore) Accept(env Envelope) ([]byte, bool, error) {
	meta := env.Chunk
	if !meta.Valid() {
		return nil, false, ErrInvalidChunk
	}
	if int64(meta.Total) > s.maxChunks() {
		return nil, false, ErrMessageTooLarge
	}
	if err := validateID(meta.ID); err != nil {
		return nil, false, err
	}
	data, err := Decode(env)
	if err != nil {
		return nil, false, err
	}
	if len(data) > s.chunkSize {
		return nil, false, ErrChunkTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if checksum, ok := s.completed.Get(meta.ID); ok {
		if checksum == meta.Checksum {
			return nil, false, nil
		}
		s.completed.Remove(meta.ID)
	}

	a := s.assemblies[meta.ID]
	if a != nil && !a.matches(meta) {
		s.discardLocked(meta.ID, a)
		a = nil
	}
	if a == nil {
		a = &assembly{
			total:     meta.Total,
			checksum:  meta.Checksum,
			received:  make(map[int]struct{}),
			createdAt: s.clock.Now(),
			path:      s.partPath(meta.ID),
		}
		if err := removeIfExists(a.path); err != nil {
			return nil, false, err
		}
		s.assemblies[meta.ID] = a
	}

	if _, seen := a.received[meta.Index]; !seen {
		if err := writeAt(a.path, data, int64(meta.Index)*int64(s.chunkSize)); err != nil {
			return nil, false, err
		}
		a.received[meta.Index] = struct{}{}
		a.bytesWritten += int64(len(data))
	}

	if !a.complete() {
		return nil, false, nil
	}

	payload, readErr := os.ReadFile(a.path)
	s.discardLocked(meta.ID, a)
	if readErr != nil {
		return nil, false, fmt.Errorf("read assembled payload: %w", readErr)
	}
	if Checksum(payload) != a.checksum {
		return nil, false, ErrChecksumMismatch
	}

	s.completed.Add(meta.ID, a.checksum)
	return payload, true, nil
}

// Sweep removes assemblies older than the TTL together with their staging
// files, and every staging file without an in-memory assembly.
// It returns the number of expired assemblies and orphaned files removed.
func (s *AssemblyStore) Sweep() (expired int, orphaned int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for id, a := range s.assemblies {
		if now.Sub(a.createdAt) > s.ttl {
			s.discardLocked(id, a)
			expired++
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return expired, 0, fmt.Errorf("list chunk directory: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, partSuffix) {
			continue
		}
		if _, ok := s.assemblies[strings.TrimSuffix(name, partSuffix)]; ok {
			continue
		}
		if rmErr := removeIfExists(filepath.Join(s.dir, name)); rmErr != nil {
			errs = append(errs, rmErr)
			continue
		}
		orphaned++
	}

	return expired, orphaned, errors.Join(errs...)
}

// Pending returns the number of in-flight assemblies.
func (s *AssemblyStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assemblies)
}

// Progress returns received and total chunk counts for an in-flight set.
func (s *AssemblyStore) Progress(id string) (received, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assemblies[id]
	if !ok {
		return 0, 0, false
	}
	return len(a.received), a.total, true
}

// maxChunks is the chunk count of a payload of exactly maxMessageSize bytes.
func (s *AssemblyStore) maxChunks() int64 {
	cs := int64(s.chunkSize)
	return (s.maxMessageSize + cs - 1) / cs
}

func (s *AssemblyStore) discardLocked(id string, a *assembly) {
	delete(s.assemblies, id)
	_ = removeIfExists(a.path)
}

func (s *AssemblyStore) partPath(id string) string {
	return filepath.Join(s.dir, id+partSuffix)
}

func writeAt(path string, data []byte, offset int64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}
	if _, err := f.WriteAt(data, offset); err != nil {
		_ = f.Close()
		return fmt.Errorf("write chunk: %w", err)
	}
	return f.Close()
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return ErrInvalidID
	}
	return nil
}
