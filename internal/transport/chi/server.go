// Package chi exposes the search core over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/cache"
	"github.com/kailas-cloud/partdex/internal/domain"
	healthuc "github.com/kailas-cloud/partdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/partdex/internal/usecase/search"
	suggestuc "github.com/kailas-cloud/partdex/internal/usecase/suggest"
	voiceuc "github.com/kailas-cloud/partdex/internal/usecase/voice"
)

// Markers wrapped around matched query words in highlighted output.
const (
	highlightOpen  = "<mark>"
	highlightClose = "</mark>"
)

// ItemSource provides the current item collection snapshot.
type ItemSource interface {
	Items(ctx context.Context) ([]domain.Item, error)
}

// HistoryStore is the server's view of the search history.
type HistoryStore interface {
	Recent(n int) []domain.HistoryEntry
	Add(ctx context.Context, term string)
	Clear(ctx context.Context)
}

// PatternStore is the server's view of the usage-pattern store.
type PatternStore interface {
	Snapshot() domain.Patterns
	Record(ctx context.Context, query string, item domain.Item)
}

// SearchConfig carries the field layout the handlers search over.
type SearchConfig struct {
	Fields        []domain.FieldPath
	CategoryField domain.FieldPath
	IDField       string
}

// Server holds the HTTP handlers. Ranked search and suggestion engines are
// per-request (the stateful debounce machine belongs to interactive
// clients); history, patterns, and the response cache are shared.
type Server struct {
	cfg      SearchConfig
	items    ItemSource
	history  HistoryStore
	patterns PatternStore
	cache    *cache.ResponseCache
	voice    *voiceuc.Service
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(
	cfg SearchConfig,
	items ItemSource,
	history HistoryStore,
	patterns PatternStore,
	responseCache *cache.ResponseCache,
	voice *voiceuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		items:    items,
		history:  history,
		patterns: patterns,
		cache:    responseCache,
		voice:    voice,
		health:   health,
		logger:   logger,
	}
}

// Routes registers all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.handleSearch)
	r.Get("/suggest", s.handleSuggest)
	r.Post("/select", s.handleSelect)
	r.Get("/history", s.handleHistory)
	r.Delete("/history", s.handleClearHistory)
	r.Post("/cache/invalidate", s.handleInvalidate)
	r.Post("/voice/query", s.handleVoiceQuery)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type searchResult struct {
	Item          domain.Item        `json:"item"`
	Score         int                `json:"score"`
	MatchedFields []domain.FieldPath `json:"matched_fields"`
	Highlighted   map[string]string  `json:"highlighted,omitempty"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
	Total   int            `json:"total"`
}

// handleSearch handles GET /search?q=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	items, err := s.items.Items(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	svc := searchuc.New(s.cfg.Fields).
		WithDebounce(0).
		WithIDField(s.cfg.IDField)
	svc.SetPatterns(s.patterns.Snapshot())
	svc.SetItems(items)
	svc.SetQuery(query)

	resp := searchResponse{Query: query}
	if query == "" {
		resp.Results = make([]searchResult, 0, len(items))
		for _, it := range items {
			resp.Results = append(resp.Results, searchResult{Item: it})
		}
	} else {
		matches := svc.Matches()
		resp.Results = make([]searchResult, 0, len(matches))
		for _, m := range matches {
			resp.Results = append(resp.Results, searchResult{
				Item:          m.Item,
				Score:         m.Score,
				MatchedFields: m.MatchedFields,
				Highlighted:   s.highlightFields(svc, m),
			})
		}
	}
	resp.Total = len(resp.Results)

	writeJSON(w, http.StatusOK, resp)
}

// highlightFields renders the matched field values with query words marked.
func (s *Server) highlightFields(svc *searchuc.Service, m domain.ScoredMatch) map[string]string {
	if len(m.MatchedFields) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.MatchedFields))
	for _, f := range m.MatchedFields {
		out[string(f)] = svc.HighlightQuery(f.Resolve(m.Item), highlightOpen, highlightClose)
	}
	return out
}

// handleSuggest handles GET /suggest?q=.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	items, err := s.items.Items(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	svc := suggestuc.New(s.history, s.patterns, s.cfg.Fields, s.cfg.CategoryField)
	svc.SetItems(items)
	list := svc.Suggest(query)

	writeJSON(w, http.StatusOK, map[string]any{
		"query":       query,
		"suggestions": list,
	})
}

type selectRequest struct {
	Query string      `json:"query"`
	Item  domain.Item `json:"item"`
}

// handleSelect handles POST /select: the user picked an item for a query,
// which feeds the usage patterns and the history.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	s.patterns.Record(r.Context(), req.Query, req.Item)
	s.history.Add(r.Context(), req.Query)
	w.WriteHeader(http.StatusNoContent)
}

// handleHistory handles GET /history.
func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": s.history.Recent(domain.HistoryLimit),
	})
}

// handleClearHistory handles DELETE /history.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.history.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type invalidateRequest struct {
	Pattern string `json:"pattern"`
}

// handleInvalidate handles POST /cache/invalidate. Without a pattern the
// whole cache is dropped.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
			return
		}
	}

	if req.Pattern == "" {
		s.cache.ClearAll()
		writeJSON(w, http.StatusOK, map[string]any{"cleared": "all"})
		return
	}
	removed := s.cache.Clear(req.Pattern)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// handleVoiceQuery handles POST /voice/query (multipart audio upload).
func (s *Server) handleVoiceQuery(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil || !s.voice.Enabled() {
		writeError(w, http.StatusNotImplemented, "not_configured", "voice capture is not configured")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "audio file is required")
		return
	}
	defer func() { _ = file.Close() }()

	transcript, query, err := s.voice.Query(r.Context(), file, header.Filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transcript": transcript,
		"query":      query,
	})
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleDomainError maps domain sentinels to HTTP responses.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAborted):
		writeError(w, http.StatusServiceUnavailable, "superseded", "request superseded by a newer one")
	case errors.Is(err, domain.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", "upstream inventory service failed")
	case errors.Is(err, domain.ErrNoTranscriber):
		writeError(w, http.StatusNotImplemented, "not_configured", "voice capture is not configured")
	default:
		s.logger.Error("Unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
