package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/cache"
	"github.com/kailas-cloud/partdex/internal/domain"
	healthuc "github.com/kailas-cloud/partdex/internal/usecase/health"
	voiceuc "github.com/kailas-cloud/partdex/internal/usecase/voice"
)

type stubItems struct {
	items []domain.Item
	err   error
}

func (s *stubItems) Items(context.Context) ([]domain.Item, error) {
	return s.items, s.err
}

type stubHistory struct {
	entries []domain.HistoryEntry
	added   []string
	cleared bool
}

func (s *stubHistory) Recent(n int) []domain.HistoryEntry {
	if n > len(s.entries) {
		n = len(s.entries)
	}
	return s.entries[:n]
}

func (s *stubHistory) Add(_ context.Context, term string) { s.added = append(s.added, term) }
func (s *stubHistory) Clear(context.Context)              { s.cleared = true }

type stubPatterns struct {
	snapshot domain.Patterns
	recorded []string
}

func (s *stubPatterns) Snapshot() domain.Patterns {
	if s.snapshot == nil {
		return domain.Patterns{}
	}
	return s.snapshot
}

func (s *stubPatterns) Record(_ context.Context, query string, _ domain.Item) {
	s.recorded = append(s.recorded, query)
}

type fixture struct {
	items    *stubItems
	history  *stubHistory
	patterns *stubPatterns
	cache    *cache.ResponseCache
	router   chi.Router
}

func newFixture(voice *voiceuc.Service) *fixture {
	f := &fixture{
		items: &stubItems{items: []domain.Item{
			{"id": "1", "name": "Oil Filter", "category": "Filters"},
			{"id": "2", "name": "Air Filter", "category": "Filters"},
			{"id": "3", "name": "Timing Belt", "category": "Belts"},
		}},
		history:  &stubHistory{},
		patterns: &stubPatterns{},
		cache:    cache.New(time.Minute, nil),
	}
	srv := NewServer(
		SearchConfig{
			Fields:        []domain.FieldPath{"name", "description"},
			CategoryField: "category",
			IDField:       "id",
		},
		f.items, f.history, f.patterns, f.cache,
		voice,
		healthuc.New(nil, nil),
		zap.NewNop(),
	)
	f.router = chi.NewRouter()
	srv.Routes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v: %s", err, rec.Body.String())
	}
	return v
}

func TestSearch_RankedResults(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(t, http.MethodGet, "/search?q=filter", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[searchResponse](t, rec)
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	if resp.Results[0].Item.Key("id") != "1" || resp.Results[1].Item.Key("id") != "2" {
		t.Errorf("unexpected order: %v", resp.Results)
	}
	if resp.Results[0].Score <= 0 {
		t.Errorf("score missing: %+v", resp.Results[0])
	}
	if got := resp.Results[0].Highlighted["name"]; got != "Oil <mark>Filter</mark>" {
		t.Errorf("highlighted name = %q", got)
	}
}

func TestSearch_EmptyQueryReturnsAll(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(t, http.MethodGet, "/search", nil)
	resp := decode[searchResponse](t, rec)
	if resp.Total != 3 {
		t.Errorf("empty query must return the whole collection, total = %d", resp.Total)
	}
	for _, r := range resp.Results {
		if r.Score != 0 || r.Highlighted != nil {
			t.Errorf("unranked result carries ranking data: %+v", r)
		}
	}
}

func TestSearch_PatternBoostChangesOrder(t *testing.T) {
	f := newFixture(nil)
	f.patterns.snapshot = domain.Patterns{
		"filter": {Items: map[string]int{"2": 5}, TotalCount: 5},
	}

	rec := f.do(t, http.MethodGet, "/search?q=filter", nil)
	resp := decode[searchResponse](t, rec)
	if resp.Results[0].Item.Key("id") != "2" {
		t.Errorf("boosted item must rank first, got %v", resp.Results[0].Item.Key("id"))
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	f := newFixture(nil)
	f.items.err = domain.ErrUpstream

	rec := f.do(t, http.MethodGet, "/search?q=x", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != "upstream_error" {
		t.Errorf("error code = %q", resp.Code)
	}
}

func TestSearch_AbortedError(t *testing.T) {
	f := newFixture(nil)
	f.items.err = domain.ErrAborted

	rec := f.do(t, http.MethodGet, "/search?q=x", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSuggest(t *testing.T) {
	f := newFixture(nil)
	f.history.entries = []domain.HistoryEntry{{Term: "belt", Count: 2}}

	rec := f.do(t, http.MethodGet, "/suggest?q=", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[struct {
		Suggestions []domain.Suggestion `json:"suggestions"`
	}](t, rec)
	if len(resp.Suggestions) != 1 || resp.Suggestions[0].Text != "belt" {
		t.Errorf("suggestions = %+v", resp.Suggestions)
	}
	if resp.Suggestions[0].Type != domain.SuggestionHistory {
		t.Errorf("type = %s, want history", resp.Suggestions[0].Type)
	}
}

func TestSelect_RecordsPatternAndHistory(t *testing.T) {
	f := newFixture(nil)

	body, _ := json.Marshal(map[string]any{
		"query": "filter",
		"item":  map[string]any{"id": "1", "name": "Oil Filter"},
	})
	rec := f.do(t, http.MethodPost, "/select", body)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.patterns.recorded) != 1 || f.patterns.recorded[0] != "filter" {
		t.Errorf("pattern not recorded: %v", f.patterns.recorded)
	}
	if len(f.history.added) != 1 || f.history.added[0] != "filter" {
		t.Errorf("history not recorded: %v", f.history.added)
	}
}

func TestSelect_RequiresQuery(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(t, http.MethodPost, "/select", []byte(`{"item":{"id":"1"}}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	f := newFixture(nil)
	f.history.entries = []domain.HistoryEntry{{Term: "filter", Count: 3}}

	rec := f.do(t, http.MethodGet, "/history", nil)
	resp := decode[struct {
		Entries []domain.HistoryEntry `json:"entries"`
	}](t, rec)
	if len(resp.Entries) != 1 || resp.Entries[0].Term != "filter" {
		t.Errorf("entries = %+v", resp.Entries)
	}

	rec = f.do(t, http.MethodDelete, "/history", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if !f.history.cleared {
		t.Error("clear was not forwarded to the store")
	}
}

func TestInvalidate(t *testing.T) {
	f := newFixture(nil)
	f.cache.Set("GET:/parts:{}", json.RawMessage(`[]`))
	f.cache.Set("GET:/shelves:{}", json.RawMessage(`[]`))

	rec := f.do(t, http.MethodPost, "/cache/invalidate", []byte(`{"pattern":"parts"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["removed"] != float64(1) {
		t.Errorf("removed = %v, want 1", resp["removed"])
	}
	if f.cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", f.cache.Len())
	}
}

func TestInvalidate_NoPatternClearsAll(t *testing.T) {
	f := newFixture(nil)
	f.cache.Set("GET:/parts:{}", json.RawMessage(`[]`))

	rec := f.do(t, http.MethodPost, "/cache/invalidate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.cache.Len() != 0 {
		t.Errorf("cache len = %d, want 0", f.cache.Len())
	}
}

func TestVoiceQuery_NotConfigured(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(t, http.MethodPost, "/voice/query", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

type readerTranscriber struct {
	transcript string
	err        error
}

func (s *readerTranscriber) Transcribe(_ context.Context, _ io.Reader, _ string) (string, error) {
	return s.transcript, s.err
}

func TestVoiceQuery(t *testing.T) {
	f := newFixture(voiceuc.New(&readerTranscriber{transcript: "find oil filter"}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("fake-audio")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/voice/query", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]string](t, rec)
	if resp["transcript"] != "find oil filter" || resp["query"] != "oil filter" {
		t.Errorf("response = %v", resp)
	}
}

func TestVoiceQuery_MissingFile(t *testing.T) {
	f := newFixture(voiceuc.New(&readerTranscriber{transcript: "x"}))

	req := httptest.NewRequest(http.MethodPost, "/voice/query", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[healthuc.Report](t, rec)
	if resp.Status != healthuc.Healthy {
		t.Errorf("status = %s", resp.Status)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("store down") }

func TestHealthz_Degraded(t *testing.T) {
	f := &fixture{
		items:    &stubItems{},
		history:  &stubHistory{},
		patterns: &stubPatterns{},
		cache:    cache.New(time.Minute, nil),
	}
	srv := NewServer(
		SearchConfig{Fields: []domain.FieldPath{"name"}, CategoryField: "category", IDField: "id"},
		f.items, f.history, f.patterns, f.cache,
		nil,
		healthuc.New(failingPinger{}, nil),
		zap.NewNop(),
	)
	f.router = chi.NewRouter()
	srv.Routes(f.router)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decode[healthuc.Report](t, rec)
	if resp.Status != healthuc.Degraded || resp.Checks["storage"] != healthuc.CheckError {
		t.Errorf("report = %+v", resp)
	}
}
