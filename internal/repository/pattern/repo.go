// Package pattern persists learned query-to-item usage patterns via the
// key-value store.
package pattern

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/domain"
	"github.com/kailas-cloud/partdex/internal/kv"
)

// Repo keeps the usage-pattern map in memory, mirrored to the store on every
// change. The map grows without eviction; that is an accepted limitation.
type Repo struct {
	mu       sync.Mutex
	store    kv.Store
	logger   *zap.Logger
	idField  string
	patterns domain.Patterns
}

// New loads the persisted patterns once. Malformed stored JSON is logged and
// replaced by an empty map.
func New(ctx context.Context, store kv.Store, idField string, logger *zap.Logger) *Repo {
	r := &Repo{store: store, logger: logger, idField: idField, patterns: make(domain.Patterns)}

	data, err := store.Load(ctx, kv.KeyUsagePatterns)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			logger.Warn("Failed to load usage patterns", zap.Error(err))
		}
		return r
	}
	if err := json.Unmarshal(data, &r.patterns); err != nil {
		logger.Warn("Discarding malformed usage patterns", zap.Error(err))
		r.patterns = make(domain.Patterns)
	}
	if r.patterns == nil {
		r.patterns = make(domain.Patterns)
	}
	return r
}

// Record registers that the user chose item after searching for query.
// Blank queries and nil items are ignored.
func (r *Repo) Record(ctx context.Context, query string, item domain.Item) {
	if strings.TrimSpace(query) == "" || item == nil {
		return
	}
	key := item.Key(r.idField)
	if key == "" {
		return
	}
	q := strings.ToLower(query)

	r.mu.Lock()
	pat, ok := r.patterns[q]
	if !ok || pat.Items == nil {
		// pat.Items can be nil when the persisted blob stored "items": null.
		pat.Items = make(map[string]int)
	}
	pat.Items[key]++
	pat.TotalCount++
	r.patterns[q] = pat
	r.mu.Unlock()

	r.persist(ctx)
}

// Snapshot returns a deep copy of the current pattern map for scoring and
// suggestions.
func (r *Repo) Snapshot() domain.Patterns {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patterns.Clone()
}

func (r *Repo) persist(ctx context.Context) {
	r.mu.Lock()
	data, err := json.Marshal(r.patterns)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("Failed to encode usage patterns", zap.Error(err))
		return
	}
	if err := r.store.Save(ctx, kv.KeyUsagePatterns, data); err != nil {
		r.logger.Warn("Failed to persist usage patterns", zap.Error(err))
	}
}
