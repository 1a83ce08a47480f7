package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/cache"
	"github.com/kailas-cloud/partdex/internal/domain"
	"github.com/kailas-cloud/partdex/internal/fetch"
	kvFile "github.com/kailas-cloud/partdex/internal/kv/file"
	historyrepo "github.com/kailas-cloud/partdex/internal/repository/history"
	inventoryrepo "github.com/kailas-cloud/partdex/internal/repository/inventory"
	patternrepo "github.com/kailas-cloud/partdex/internal/repository/pattern"
	"github.com/kailas-cloud/partdex/internal/tui"
	searchuc "github.com/kailas-cloud/partdex/internal/usecase/search"
	suggestuc "github.com/kailas-cloud/partdex/internal/usecase/suggest"
)

func main() {
	_ = godotenv.Load()

	var (
		upstream = flag.String("upstream", "", "base URL of the inventory service")
		resource = flag.String("resource", "parts", "upstream resource holding the items")
		itemFile = flag.String("file", "", "load items from a local JSON file instead of the upstream")
		dataDir  = flag.String("data", ".partdex", "directory for history and usage patterns")
		debounce = flag.Int("debounce", 300, "debounce window in milliseconds")
		idField  = flag.String("id-field", "id", "item identity field")
		category = flag.String("category-field", "category", "category field")
	)
	flag.Parse()

	if err := run(*upstream, *resource, *itemFile, *dataDir, *idField, *category, *debounce); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(upstream, resource, itemFile, dataDir, idField, category string, debounceMs int) error {
	logger := zap.NewNop() // the TUI owns the terminal; nothing may write to it

	store, err := kvFile.New(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	historyRepo := historyrepo.New(ctx, store, logger)
	patternRepo := patternrepo.New(ctx, store, idField, logger)

	items, err := loadItems(ctx, upstream, resource, itemFile, logger)
	if err != nil {
		return err
	}

	fields := []domain.FieldPath{"name", "description", "category", "location"}

	searchSvc := searchuc.New(fields).
		WithDebounce(time.Duration(debounceMs) * time.Millisecond).
		WithIDField(idField)
	searchSvc.SetPatterns(patternRepo.Snapshot())
	searchSvc.SetItems(items)

	suggestSvc := suggestuc.New(historyRepo, patternRepo, fields, domain.FieldPath(category))
	suggestSvc.SetItems(items)

	model := tui.New(searchSvc, suggestSvc, patternRepo, historyRepo)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// loadItems reads the collection from a local JSON file or from the upstream
// inventory service through a coordinator.
func loadItems(ctx context.Context, upstream, resource, itemFile string, logger *zap.Logger) ([]domain.Item, error) {
	if itemFile != "" {
		data, err := os.ReadFile(itemFile)
		if err != nil {
			return nil, fmt.Errorf("read items: %w", err)
		}
		var items []domain.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		return items, nil
	}
	if upstream == "" {
		return nil, fmt.Errorf("either -upstream or -file is required")
	}

	transport := fetch.NewHTTPTransport(upstream, 10*time.Second)
	coordinator := fetch.NewCoordinator(transport, cache.New(cache.DefaultTTL, nil), logger)
	items, err := inventoryrepo.New(coordinator, resource).Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	return items, nil
}
