// Package history persists the recent-search list via the key-value store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/domain"
	"github.com/kailas-cloud/partdex/internal/kv"
)

// Repo keeps the search history in memory, most recent first, mirrored to
// the store on every change. Capped at domain.HistoryLimit entries.
type Repo struct {
	mu      sync.Mutex
	store   kv.Store
	logger  *zap.Logger
	entries []domain.HistoryEntry
	now     func() time.Time
}

// New loads the persisted history once. Malformed stored JSON is logged and
// replaced by an empty list; it is never an error to the caller.
func New(ctx context.Context, store kv.Store, logger *zap.Logger) *Repo {
	r := &Repo{store: store, logger: logger, now: time.Now}

	data, err := store.Load(ctx, kv.KeySearchHistory)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			logger.Warn("Failed to load search history", zap.Error(err))
		}
		return r
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		logger.Warn("Discarding malformed search history", zap.Error(err))
		r.entries = nil
	}
	return r
}

// WithClock overrides the time source, for tests.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Add records a search term: a repeated term moves to the front with its
// count incremented. Blank terms are ignored.
func (r *Repo) Add(ctx context.Context, term string) {
	if strings.TrimSpace(term) == "" {
		return
	}

	r.mu.Lock()
	count := 1
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.Term == term {
			count = e.Count + 1
			continue
		}
		kept = append(kept, e)
	}
	entries := append([]domain.HistoryEntry{{Term: term, Timestamp: r.now(), Count: count}}, kept...)
	if len(entries) > domain.HistoryLimit {
		entries = entries[:domain.HistoryLimit]
	}
	r.entries = entries
	r.mu.Unlock()

	r.persist(ctx)
}

// Recent returns up to n entries, most recent first.
func (r *Repo) Recent(n int) []domain.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]domain.HistoryEntry, n)
	copy(out, r.entries[:n])
	return out
}

// Clear drops the whole history.
func (r *Repo) Clear(ctx context.Context) {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
	r.persist(ctx)
}

// persist mirrors the current list to the store. A failed save keeps the
// in-memory state authoritative and is only logged.
func (r *Repo) persist(ctx context.Context) {
	r.mu.Lock()
	data, err := json.Marshal(r.entries)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("Failed to encode search history", zap.Error(err))
		return
	}
	if err := r.store.Save(ctx, kv.KeySearchHistory, data); err != nil {
		r.logger.Warn("Failed to persist search history", zap.Error(err))
	}
}
