// Package memory provides an in-memory DefectStore for tests and
// deployments without durable storage.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/storage"
)

// maxRecords bounds memory growth; the oldest records are evicted first.
const maxRecords = 1000

// Store is an in-memory implementation of storage.DefectStore.
type Store struct {
	mu      sync.RWMutex
	byCorr  map[string]*storage.DefectRecord
	ordered []*storage.DefectRecord
}

var _ storage.DefectStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{byCorr: make(map[string]*storage.DefectRecord)}
}

func (s *Store) Record(_ context.Context, rec *storage.DefectRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	s.byCorr[stored.CorrID] = &stored
	s.ordered = append(s.ordered, &stored)

	if len(s.ordered) > maxRecords {
		evicted := s.ordered[0]
		s.ordered = s.ordered[1:]
		if s.byCorr[evicted.CorrID] == evicted {
			delete(s.byCorr, evicted.CorrID)
		}
	}
	return nil
}

func (s *Store) GetByCorrID(_ context.Context, corrID string) (*storage.DefectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byCorr[corrID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]*storage.DefectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.ordered) {
		limit = len(s.ordered)
	}

	out := make([]*storage.DefectRecord, 0, limit)
	// Newest first.
	for i := len(s.ordered) - 1; i >= 0 && len(out) < limit; i-- {
		rec := *s.ordered[i]
		out = append(out, &rec)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
