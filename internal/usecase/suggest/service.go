// Package suggest builds the ranked suggestion list shown under the search
// box, blending history, live item matches, categories, and learned usage
// patterns, and tracks the keyboard-navigation cursor over it.
package suggest

import (
	"context"
	"sort"
	"strings"

	"github.com/kailas-cloud/partdex/internal/domain"
)

const (
	historyLimit = 5
	listLimit    = 8
)

// Service is the suggestion engine. Like the search state machine it is
// single-goroutine by contract; each interactive session owns an instance.
type Service struct {
	history  HistoryStore
	patterns PatternReader
	fields   []domain.FieldPath
	category domain.FieldPath

	items  []domain.Item
	list   []domain.Suggestion
	cursor int
}

// New creates a suggestion engine. category is the field whose distinct
// values act as category suggestions.
func New(history HistoryStore, patterns PatternReader, fields []domain.FieldPath, category domain.FieldPath) *Service {
	return &Service{
		history:  history,
		patterns: patterns,
		fields:   fields,
		category: category,
		cursor:   -1,
	}
}

// SetItems replaces the collection snapshot used for item and category
// suggestions.
func (s *Service) SetItems(items []domain.Item) {
	s.items = items
}

// Suggest rebuilds the list for the raw (non-debounced) query and resets the
// cursor. An empty query yields recent history; otherwise item matches,
// categories, and pattern keys are merged, sorted history-first then by
// descending count (stable), and truncated.
func (s *Service) Suggest(rawQuery string) []domain.Suggestion {
	s.cursor = -1

	if rawQuery == "" {
		s.list = s.historySuggestions()
		return s.List()
	}

	q := strings.ToLower(rawQuery)
	list := s.itemSuggestions(q)
	list = append(list, s.categorySuggestions(q)...)
	list = append(list, s.patternSuggestions(q)...)

	sort.SliceStable(list, func(i, j int) bool {
		hi := list[i].Type == domain.SuggestionHistory
		hj := list[j].Type == domain.SuggestionHistory
		if hi != hj {
			return hi
		}
		return list[i].Count > list[j].Count
	})
	if len(list) > listLimit {
		list = list[:listLimit]
	}
	s.list = list
	return s.List()
}

// List returns a copy of the current suggestion list.
func (s *Service) List() []domain.Suggestion {
	out := make([]domain.Suggestion, len(s.list))
	copy(out, s.list)
	return out
}

// Cursor returns the current selection index, -1 when nothing is selected.
func (s *Service) Cursor() int { return s.cursor }

// MoveDown advances the cursor, wrapping from the last entry to the first.
// No-op on an empty list.
func (s *Service) MoveDown() {
	if len(s.list) == 0 {
		return
	}
	s.cursor = (s.cursor + 1) % len(s.list)
}

// MoveUp retreats the cursor, wrapping from the first entry to the last.
// No-op on an empty list.
func (s *Service) MoveUp() {
	if len(s.list) == 0 {
		return
	}
	if s.cursor <= 0 {
		s.cursor = len(s.list) - 1
		return
	}
	s.cursor--
}

// Enter selects the entry under the cursor. It returns the new active query
// text, or false when no entry is selected.
func (s *Service) Enter(ctx context.Context) (string, bool) {
	if s.cursor < 0 || s.cursor >= len(s.list) {
		return "", false
	}
	return s.Select(ctx, s.list[s.cursor]), true
}

// Select applies a suggestion: the list and cursor are cleared, the text is
// recorded into history, and returned as the new active query.
func (s *Service) Select(ctx context.Context, sug domain.Suggestion) string {
	s.list = nil
	s.cursor = -1
	s.history.Add(ctx, sug.Text)
	return sug.Text
}

// Escape clears the list and cursor without selecting.
func (s *Service) Escape() {
	s.list = nil
	s.cursor = -1
}

func (s *Service) historySuggestions() []domain.Suggestion {
	entries := s.history.Recent(historyLimit)
	list := make([]domain.Suggestion, 0, len(entries))
	for _, e := range entries {
		list = append(list, domain.Suggestion{
			Type:  domain.SuggestionHistory,
			Text:  e.Term,
			Count: e.Count,
		})
	}
	return list
}

// itemSuggestions collects field values containing the query, deduplicated
// by text so identical values across items appear once.
func (s *Service) itemSuggestions(q string) []domain.Suggestion {
	var list []domain.Suggestion
	seen := make(map[string]bool)
	for _, it := range s.items {
		for _, f := range s.fields {
			value := f.Resolve(it)
			if value == "" || seen[value] {
				continue
			}
			if !strings.Contains(strings.ToLower(value), q) {
				continue
			}
			seen[value] = true
			list = append(list, domain.Suggestion{
				Type: domain.SuggestionItem,
				Text: value,
				Item: it,
			})
		}
	}
	return list
}

// categorySuggestions collects distinct category values containing the
// query, counted by how many items carry them.
func (s *Service) categorySuggestions(q string) []domain.Suggestion {
	if s.category == "" {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, it := range s.items {
		value := s.category.Resolve(it)
		if value == "" {
			continue
		}
		if counts[value] == 0 {
			order = append(order, value)
		}
		counts[value]++
	}
	var list []domain.Suggestion
	for _, value := range order {
		if !strings.Contains(strings.ToLower(value), q) {
			continue
		}
		list = append(list, domain.Suggestion{
			Type:  domain.SuggestionCategory,
			Text:  value,
			Count: counts[value],
		})
	}
	return list
}

// patternSuggestions collects usage-pattern keys containing the query.
// Keys are walked in sorted order so the merge is deterministic.
func (s *Service) patternSuggestions(q string) []domain.Suggestion {
	snapshot := s.patterns.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var list []domain.Suggestion
	for _, k := range keys {
		if !strings.Contains(k, q) {
			continue
		}
		list = append(list, domain.Suggestion{
			Type:  domain.SuggestionPattern,
			Text:  k,
			Count: snapshot[k].TotalCount,
		})
	}
	return list
}
