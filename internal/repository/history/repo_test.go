package history

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/domain"
	"github.com/kailas-cloud/partdex/internal/kv"
	"github.com/kailas-cloud/partdex/internal/kv/memory"
)

func TestAdd_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), zap.NewNop())

	repo.Add(ctx, "filter")
	repo.Add(ctx, "filter")
	repo.Add(ctx, "belt")

	got := repo.Recent(10)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Term != "belt" || got[0].Count != 1 {
		t.Errorf("front entry = %+v, want belt with count 1", got[0])
	}
	if got[1].Term != "filter" || got[1].Count != 2 {
		t.Errorf("second entry = %+v, want filter with count 2", got[1])
	}
}

func TestAdd_RepeatMovesToFront(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), zap.NewNop())

	repo.Add(ctx, "filter")
	repo.Add(ctx, "belt")
	repo.Add(ctx, "filter")

	got := repo.Recent(10)
	if got[0].Term != "filter" || got[0].Count != 2 {
		t.Errorf("repeated term must move to the front with count 2, got %+v", got[0])
	}
	if got[1].Term != "belt" {
		t.Errorf("second entry = %+v, want belt", got[1])
	}
}

func TestAdd_CapsAtLimit(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), zap.NewNop())

	terms := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for _, term := range terms {
		repo.Add(ctx, term)
	}

	got := repo.Recent(100)
	if len(got) != domain.HistoryLimit {
		t.Fatalf("expected cap at %d, got %d", domain.HistoryLimit, len(got))
	}
	if got[0].Term != "l" {
		t.Errorf("front entry = %q, want the latest term", got[0].Term)
	}
	for _, e := range got {
		if e.Term == "a" || e.Term == "b" {
			t.Errorf("oldest terms must be evicted, found %q", e.Term)
		}
	}
}

func TestAdd_BlankIgnored(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), zap.NewNop())

	repo.Add(ctx, "")
	repo.Add(ctx, "   ")

	if got := repo.Recent(10); len(got) != 0 {
		t.Errorf("blank terms must be ignored, got %v", got)
	}
}

func TestAdd_SetsTimestamp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := New(ctx, memory.New(), zap.NewNop()).WithClock(func() time.Time { return now })

	repo.Add(ctx, "filter")
	if got := repo.Recent(1)[0].Timestamp; !got.Equal(now) {
		t.Errorf("timestamp = %v, want %v", got, now)
	}
}

func TestNew_ReloadsPersistedHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	first := New(ctx, store, zap.NewNop())
	first.Add(ctx, "filter")
	first.Add(ctx, "belt")

	second := New(ctx, store, zap.NewNop())
	got := second.Recent(10)
	if len(got) != 2 || got[0].Term != "belt" || got[1].Term != "filter" {
		t.Errorf("reloaded history = %v", got)
	}
}

func TestNew_MalformedStoredJSON(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := store.Save(ctx, kv.KeySearchHistory, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	repo := New(ctx, store, zap.NewNop())
	if got := repo.Recent(10); len(got) != 0 {
		t.Errorf("malformed history must load as empty, got %v", got)
	}

	// The repo stays usable.
	repo.Add(ctx, "filter")
	if got := repo.Recent(10); len(got) != 1 {
		t.Errorf("add after malformed load failed: %v", got)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := New(ctx, store, zap.NewNop())

	repo.Add(ctx, "filter")
	repo.Clear(ctx)

	if got := repo.Recent(10); len(got) != 0 {
		t.Errorf("clear left entries: %v", got)
	}
	if got := New(ctx, store, zap.NewNop()).Recent(10); len(got) != 0 {
		t.Errorf("clear was not persisted: %v", got)
	}
}
