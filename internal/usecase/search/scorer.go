package search

import (
	"strings"

	"github.com/kailas-cloud/partdex/internal/domain"
)

// Score tiers per (field, word) pair.
const (
	scoreExact     = 100
	scorePrefix    = 50
	scoreSubstring = 10
	// patternBoost multiplies the observation count of a learned
	// query-to-item association.
	patternBoost = 5
)

// Score computes the relevance of item for query across the given fields.
// The query is split on whitespace into lowercase words; each word scores
// every field it occurs in (exact > prefix > substring). A field appears in
// the matched list at most once. If the full lowercased query has a learned
// usage pattern recording this item, patternBoost per observation is added.
// A score of zero means no match. Pure and deterministic; absent fields
// resolve to the empty string and contribute nothing.
func Score(
	item domain.Item,
	fields []domain.FieldPath,
	query string,
	patterns domain.Patterns,
	idField string,
) (int, []domain.FieldPath) {
	words := splitWords(query)
	if len(words) == 0 {
		return 0, nil
	}

	score := 0
	var matched []domain.FieldPath

	for _, f := range fields {
		value := strings.ToLower(f.Resolve(item))
		if value == "" {
			continue
		}
		fieldMatched := false
		for _, w := range words {
			if !strings.Contains(value, w) {
				continue
			}
			switch {
			case value == w:
				score += scoreExact
			case strings.HasPrefix(value, w):
				score += scorePrefix
			default:
				score += scoreSubstring
			}
			fieldMatched = true
		}
		if fieldMatched {
			matched = append(matched, f)
		}
	}

	if obs := patterns.Observations(strings.ToLower(query), item.Key(idField)); obs > 0 {
		score += patternBoost * obs
	}

	return score, matched
}

// splitWords lowercases the query and splits it on whitespace, dropping
// empty tokens.
func splitWords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
