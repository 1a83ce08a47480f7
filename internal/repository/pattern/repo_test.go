package pattern

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/domain"
	"github.com/kailas-cloud/partdex/internal/kv"
	"github.com/kailas-cloud/partdex/internal/kv/memory"
)

func TestRecord_Accumulates(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), "id", zap.NewNop())

	item1 := domain.Item{"id": "1", "name": "Oil Filter"}
	item2 := domain.Item{"id": "2", "name": "Air Filter"}

	repo.Record(ctx, "filter", item1)
	repo.Record(ctx, "filter", item1)
	repo.Record(ctx, "filter", item2)

	got := repo.Snapshot()
	pat, ok := got["filter"]
	if !ok {
		t.Fatalf("missing pattern for %q: %v", "filter", got)
	}
	if pat.TotalCount != 3 {
		t.Errorf("total count = %d, want 3", pat.TotalCount)
	}
	if pat.Items["1"] != 2 || pat.Items["2"] != 1 {
		t.Errorf("per-item counts = %v", pat.Items)
	}
}

func TestRecord_LowercasesQuery(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), "id", zap.NewNop())
	item := domain.Item{"id": "1"}

	repo.Record(ctx, "Oil Filter", item)
	repo.Record(ctx, "OIL FILTER", item)

	got := repo.Snapshot()
	if len(got) != 1 {
		t.Fatalf("case variants must share one key, got %v", got)
	}
	if got["oil filter"].TotalCount != 2 {
		t.Errorf("total count = %d, want 2", got["oil filter"].TotalCount)
	}
}

func TestRecord_IgnoresBlankAndNil(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), "id", zap.NewNop())

	repo.Record(ctx, "", domain.Item{"id": "1"})
	repo.Record(ctx, "   ", domain.Item{"id": "1"})
	repo.Record(ctx, "filter", nil)
	repo.Record(ctx, "filter", domain.Item{"name": "no identity"})

	if got := repo.Snapshot(); len(got) != 0 {
		t.Errorf("expected no patterns recorded, got %v", got)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), "id", zap.NewNop())
	repo.Record(ctx, "filter", domain.Item{"id": "1"})

	snap := repo.Snapshot()
	snap["filter"].Items["1"] = 99
	snap["injected"] = domain.UsagePattern{TotalCount: 1}

	got := repo.Snapshot()
	if got["filter"].Items["1"] != 1 {
		t.Errorf("mutating a snapshot leaked into the repo: %v", got)
	}
	if _, ok := got["injected"]; ok {
		t.Error("added snapshot key leaked into the repo")
	}
}

func TestNew_ReloadsPersistedPatterns(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	first := New(ctx, store, "id", zap.NewNop())
	first.Record(ctx, "filter", domain.Item{"id": "7"})

	second := New(ctx, store, "id", zap.NewNop())
	got := second.Snapshot()
	if got["filter"].Items["7"] != 1 || got["filter"].TotalCount != 1 {
		t.Errorf("reloaded patterns = %v", got)
	}
}

func TestNew_MalformedStoredJSON(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := store.Save(ctx, kv.KeyUsagePatterns, []byte("[]")); err != nil {
		t.Fatal(err)
	}

	repo := New(ctx, store, "id", zap.NewNop())
	if got := repo.Snapshot(); len(got) != 0 {
		t.Errorf("malformed patterns must load as empty, got %v", got)
	}

	repo.Record(ctx, "filter", domain.Item{"id": "1"})
	if got := repo.Snapshot(); got["filter"].TotalCount != 1 {
		t.Errorf("record after malformed load failed: %v", got)
	}
}

func TestNew_NilItemsInStoredPattern(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	// Parses cleanly, but the entry carries a nil item map.
	err := store.Save(ctx, kv.KeyUsagePatterns, []byte(`{"filter":{"items":null,"totalCount":2}}`))
	if err != nil {
		t.Fatal(err)
	}

	repo := New(ctx, store, "id", zap.NewNop())
	repo.Record(ctx, "filter", domain.Item{"id": "1"})

	got := repo.Snapshot()
	if got["filter"].Items["1"] != 1 {
		t.Errorf("per-item counts = %v", got["filter"].Items)
	}
	if got["filter"].TotalCount != 3 {
		t.Errorf("total count = %d, want 3", got["filter"].TotalCount)
	}
}

func TestRecord_CustomIDField(t *testing.T) {
	ctx := context.Background()
	repo := New(ctx, memory.New(), "sku", zap.NewNop())

	repo.Record(ctx, "filter", domain.Item{"sku": "OF-100", "id": "ignored"})

	got := repo.Snapshot()
	if got["filter"].Items["OF-100"] != 1 {
		t.Errorf("expected the sku to identify the item, got %v", got["filter"].Items)
	}
}
