package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrETagMismatch reports a concurrent modification detected by Mutate.
var ErrETagMismatch = errors.New("settings: etag mismatch")

// Meta is storage-owned metadata for one saved snapshot.
type Meta struct {
	SnapshotID string    `json:"snapshot_id,omitempty"`
	ETag       string    `json:"etag,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Store loads and saves one snapshot per key. It is the persisted layer the
// hosting extension writes its toggles to.
type Store[T any] interface {
	Load(ctx context.Context, key string) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, key string, snapshot T, meta Meta) (Meta, error)
}

// Mutator edits a snapshot in place.
type Mutator[T any] func(*T) error

// MemoryStore keeps snapshots in a map.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[T]
}

type memoryRecord[T any] struct {
	snapshot T
	meta     Meta
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]memoryRecord[T]{}}
}

func (s *MemoryStore[T]) Load(_ context.Context, key string) (T, Meta, bool, error) {
	var zero T
	if err := checkKey(key); err != nil {
		return zero, Meta{}, false, err
	}
	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	return Clone(record.snapshot), record.meta, true, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, key string, snapshot T, meta Meta) (Meta, error) {
	if err := checkKey(key); err != nil {
		return Meta{}, err
	}
	s.mu.Lock()
	if s.records == nil {
		s.records = map[string]memoryRecord[T]{}
	}
	s.records[key] = memoryRecord[T]{snapshot: Clone(snapshot), meta: meta}
	s.mu.Unlock()
	return meta, nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("settings: store key is required")
	}
	return nil
}

// LoadLayer reads key from store as the stored scope layer. ok is false when
// nothing has been saved.
func LoadLayer(ctx context.Context, store Store[Settings], key string) (Layer[Settings], bool, error) {
	if store == nil {
		return Layer[Settings]{}, false, fmt.Errorf("settings: store is required")
	}
	snapshot, meta, ok, err := store.Load(ctx, key)
	if err != nil {
		return Layer[Settings]{}, false, fmt.Errorf("settings: load %q: %w", key, err)
	}
	if !ok {
		return Layer[Settings]{}, false, nil
	}
	return StoredLayer(snapshot).WithSnapshotID(meta.SnapshotID), true, nil
}

type validator interface {
	Validate() error
}

// Mutate loads key, applies fn, validates, and saves with a fresh ETag and
// snapshot id. When expected carries an ETag and the stored one differs, it
// fails with ErrETagMismatch and saves nothing.
func Mutate[T any](ctx context.Context, store Store[T], key string, expected Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	if store == nil {
		return zero, Meta{}, fmt.Errorf("settings: store is required")
	}
	if fn == nil {
		return zero, Meta{}, fmt.Errorf("settings: mutator is required")
	}

	snapshot, loaded, ok, err := store.Load(ctx, key)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("settings: load %q: %w", key, err)
	}
	if !ok {
		snapshot = zero
		loaded = Meta{}
	}
	if expected.ETag != "" && loaded.ETag != expected.ETag {
		return zero, loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return zero, loaded, err
	}
	if v, ok := any(snapshot).(validator); ok {
		if err := v.Validate(); err != nil {
			return zero, loaded, err
		}
	}

	next := Meta{
		SnapshotID: uuid.NewString(),
		ETag:       uuid.NewString(),
		UpdatedAt:  time.Now().UTC(),
	}
	saved, err := store.Save(ctx, key, snapshot, next)
	if err != nil {
		return zero, loaded, fmt.Errorf("settings: save %q: %w", key, err)
	}
	return snapshot, saved, nil
}
