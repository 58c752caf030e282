package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

type snapshot struct {
	pivots    directory.PivotMap
	expiresAt time.Time
}

func (s snapshot) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// InMemorySnapshotStore implements directory.SnapshotStore in process memory.
// Snapshots do not survive a restart.
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]snapshot
	now       func() time.Time
}

// NewInMemorySnapshotStore creates an empty store
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{
		snapshots: make(map[string]snapshot),
		now:       time.Now,
	}
}

// Save stores a copy of pivots. A zero ttl keeps the snapshot until replaced.
func (s *InMemorySnapshotStore) Save(_ context.Context, task string, pivots directory.PivotMap, ttl time.Duration) error {
	snap := snapshot{pivots: clonePivots(pivots)}
	if ttl > 0 {
		snap.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[task] = snap
	return nil
}

// Load returns a copy of the last snapshot of task, if any
func (s *InMemorySnapshotStore) Load(_ context.Context, task string) (directory.PivotMap, bool, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[task]
	s.mu.RUnlock()
	if !ok || snap.expired(s.now()) {
		return nil, false, nil
	}
	return clonePivots(snap.pivots), true, nil
}

// Close drops every snapshot
func (s *InMemorySnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = make(map[string]snapshot)
	return nil
}

func clonePivots(p directory.PivotMap) directory.PivotMap {
	out := make(directory.PivotMap, len(p))
	for k, ds := range p {
		out[k] = ds.Clone()
	}
	return out
}

var _ directory.SnapshotStore = (*InMemorySnapshotStore)(nil)
