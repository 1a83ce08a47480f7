package domain

// SuggestionType identifies which signal source produced a suggestion.
type SuggestionType string

const (
	// SuggestionHistory comes from recent search history.
	SuggestionHistory SuggestionType = "history"
	// SuggestionItem comes from a live item field value.
	SuggestionItem SuggestionType = "item"
	// SuggestionCategory comes from a distinct category value.
	SuggestionCategory SuggestionType = "category"
	// SuggestionPattern comes from a learned usage-pattern key.
	SuggestionPattern SuggestionType = "pattern"
)

// Suggestion is one entry of the merged suggestion list.
type Suggestion struct {
	Type  SuggestionType `json:"type"`
	Text  string         `json:"text"`
	Count int            `json:"count,omitempty"`
	Item  Item           `json:"item,omitempty"`
}
