package domain

import (
	"fmt"
	"strings"
)

// DefaultIDField is the fallback identity field when no unique field is configured.
const DefaultIDField = "id"

// Item is one inventory record as delivered by the data layer: an arbitrary
// mapping of named fields. The search layer treats items as immutable snapshots.
type Item map[string]any

// Key returns the item's identity under the designated unique field,
// falling back to DefaultIDField. Non-string values are stringified.
func (it Item) Key(idField string) string {
	if idField == "" {
		idField = DefaultIDField
	}
	v, ok := it[idField]
	if !ok {
		v, ok = it[DefaultIDField]
	}
	if !ok || v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprint(v)
}

// FieldPath is a dotted accessor addressing a possibly nested item field,
// e.g. "location.shelf".
type FieldPath string

// Resolve reads the field value as a string. A missing or nil intermediate
// short-circuits to the empty string; leaf values are stringified.
func (p FieldPath) Resolve(it Item) string {
	var cur any = map[string]any(it)
	for _, part := range strings.Split(string(p), ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return ""
		}
	}
	if s, ok := cur.(string); ok {
		return s
	}
	return fmt.Sprint(cur)
}

// ScoredMatch is one ranked search result. Recomputed on every query pass,
// never stored.
type ScoredMatch struct {
	Item          Item
	Score         int
	MatchedFields []FieldPath
}
