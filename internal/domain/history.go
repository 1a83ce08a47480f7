package domain

import "time"

// HistoryLimit caps the retained search history, most recent first.
const HistoryLimit = 10

// HistoryEntry is one remembered search term.
type HistoryEntry struct {
	Term      string    `json:"term"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}
