package suggest

import (
	"context"

	"github.com/kailas-cloud/partdex/internal/domain"
)

// HistoryStore provides recent search terms and records selections.
type HistoryStore interface {
	Recent(n int) []domain.HistoryEntry
	Add(ctx context.Context, term string)
}

// PatternReader provides the learned usage-pattern snapshot.
type PatternReader interface {
	Snapshot() domain.Patterns
}
