package domain

// UsagePattern records which items were chosen after a given query.
type UsagePattern struct {
	// Items maps item identity key to observation count.
	Items      map[string]int `json:"items"`
	TotalCount int            `json:"totalCount"`
}

// Patterns maps a lowercase query string to its learned usage pattern.
// The map grows without eviction; that is an accepted limitation.
type Patterns map[string]UsagePattern

// Observations returns how often the item identified by key was chosen
// after the given (already lowercased) query.
func (p Patterns) Observations(query, key string) int {
	pat, ok := p[query]
	if !ok {
		return 0
	}
	return pat.Items[key]
}

// Clone returns a deep copy, so readers can hold a snapshot while the
// store keeps mutating.
func (p Patterns) Clone() Patterns {
	out := make(Patterns, len(p))
	for q, pat := range p {
		items := make(map[string]int, len(pat.Items))
		for k, n := range pat.Items {
			items[k] = n
		}
		out[q] = UsagePattern{Items: items, TotalCount: pat.TotalCount}
	}
	return out
}
