// Package search ranks the live item collection against a debounced
// free-text query.
package search

import (
	"sort"
	"time"

	"github.com/kailas-cloud/partdex/internal/domain"
)

// DefaultDebounce is the quiet period between the last keystroke and the
// recompute it triggers.
const DefaultDebounce = 300 * time.Millisecond

// Service is the ranked-search state machine. It holds a raw query (updated
// on every keystroke) and a debounced query (updated once the raw value has
// been quiet for the debounce window). Matching reruns only when the
// debounced query, the item collection, or the pattern snapshot changes.
//
// The service is single-goroutine by contract: the owning event loop calls
// SetQuery/Tick/SetItems/SetPatterns and reads the outputs in between.
type Service struct {
	fields   []domain.FieldPath
	idField  string
	debounce time.Duration
	now      func() time.Time

	items    []domain.Item
	patterns domain.Patterns

	raw       string
	debounced string
	deadline  time.Time
	pending   bool

	matches []domain.ScoredMatch
}

// New creates a ranked search over the given match fields.
func New(fields []domain.FieldPath) *Service {
	return &Service{
		fields:   fields,
		idField:  domain.DefaultIDField,
		debounce: DefaultDebounce,
		now:      time.Now,
	}
}

// WithDebounce overrides the debounce window. Zero applies every keystroke
// immediately, which is what the stateless HTTP path uses.
func (s *Service) WithDebounce(d time.Duration) *Service {
	s.debounce = d
	return s
}

// WithIDField sets the item identity field used for pattern boosts.
func (s *Service) WithIDField(field string) *Service {
	if field != "" {
		s.idField = field
	}
	return s
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SetQuery records a keystroke. With a debounce window the recompute is
// deferred until Tick observes the window elapsed; every further keystroke
// pushes the deadline out again so only the final value triggers work.
func (s *Service) SetQuery(raw string) {
	s.raw = raw
	if s.debounce <= 0 {
		s.applyRaw()
		return
	}
	s.deadline = s.now().Add(s.debounce)
	s.pending = true
}

// Tick advances the debounce timer. It reports whether a recompute fired.
func (s *Service) Tick(now time.Time) bool {
	if !s.pending || now.Before(s.deadline) {
		return false
	}
	s.applyRaw()
	return true
}

// Flush applies the raw query immediately, discarding any pending debounce.
func (s *Service) Flush() {
	s.applyRaw()
}

// PendingAt returns the debounce deadline, if a recompute is pending.
// Event loops use it to schedule the next Tick.
func (s *Service) PendingAt() (time.Time, bool) {
	return s.deadline, s.pending
}

// SetItems replaces the collection snapshot and reranks.
func (s *Service) SetItems(items []domain.Item) {
	s.items = items
	s.recompute()
}

// SetPatterns replaces the usage-pattern snapshot and reranks.
func (s *Service) SetPatterns(p domain.Patterns) {
	s.patterns = p
	s.recompute()
}

// Query returns the raw query as last typed.
func (s *Service) Query() string { return s.raw }

// DebouncedQuery returns the query the current ranking reflects.
func (s *Service) DebouncedQuery() string { return s.debounced }

// Results returns the ranked items. An empty debounced query yields the
// collection itself, unfiltered and in original order.
func (s *Service) Results() []domain.Item {
	if s.debounced == "" {
		return s.items
	}
	out := make([]domain.Item, len(s.matches))
	for i, m := range s.matches {
		out[i] = m.Item
	}
	return out
}

// Matches returns the ranked results with scores and matched fields.
// Empty for an empty debounced query.
func (s *Service) Matches() []domain.ScoredMatch {
	return s.matches
}

// HighlightQuery wraps occurrences of the debounced query's words in text.
func (s *Service) HighlightQuery(text, open, close string) string {
	return Highlight(text, splitWords(s.debounced), open, close)
}

func (s *Service) applyRaw() {
	s.pending = false
	if s.debounced == s.raw {
		return
	}
	s.debounced = s.raw
	s.recompute()
}

// recompute reruns the match pass: score every item, drop non-matches, and
// stable-sort descending so ties keep collection order.
func (s *Service) recompute() {
	if s.debounced == "" {
		s.matches = nil
		return
	}
	matches := make([]domain.ScoredMatch, 0, len(s.items))
	for _, it := range s.items {
		score, fields := Score(it, s.fields, s.debounced, s.patterns, s.idField)
		if score <= 0 {
			continue
		}
		matches = append(matches, domain.ScoredMatch{Item: it, Score: score, MatchedFields: fields})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	s.matches = matches
}
