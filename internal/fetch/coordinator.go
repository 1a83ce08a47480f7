package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/cache"
	"github.com/kailas-cloud/partdex/internal/domain"
)

// errSuperseded is the cancellation cause set when a newer request arrives.
var errSuperseded = errors.New("superseded by newer request")

// Options tunes a single coordinated request.
type Options struct {
	// Body is JSON-serialized into the request and the cache key.
	Body any
	// NoCache opts a GET out of the response cache.
	NoCache bool
}

// Coordinator issues requests through the response cache and cancels the
// previous in-flight request when a new one is started. At most one prior
// request is cancelled; already-delivered side effects are not rolled back.
type Coordinator struct {
	transport Transport
	cache     *cache.ResponseCache
	logger    *zap.Logger

	mu      sync.Mutex
	current *inflight
}

// inflight identifies one outstanding request so its completion only clears
// its own slot, not a successor's.
type inflight struct {
	cancel context.CancelCauseFunc
}

// NewCoordinator creates a coordinator. cache can be nil to disable caching.
func NewCoordinator(transport Transport, c *cache.ResponseCache, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{transport: transport, cache: c, logger: logger}
}

// Do performs one request. GETs are served from the cache when possible and
// stored on success; non-GETs bypass the cache and invalidate the endpoint's
// resource class afterwards. A superseded request resolves to
// domain.ErrAborted instead of a transport error.
func (c *Coordinator) Do(ctx context.Context, method, endpoint string, opts Options) (json.RawMessage, error) {
	key := cache.Key(method, endpoint, opts.Body)
	cacheable := method == http.MethodGet && !opts.NoCache && c.cache != nil

	if cacheable {
		if data, ok := c.cache.Get(key); ok {
			return data, nil
		}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	call := &inflight{cancel: cancel}

	c.mu.Lock()
	if c.current != nil {
		c.current.cancel(errSuperseded)
	}
	c.current = call
	c.mu.Unlock()

	data, err := c.transport.Send(ctx, method, endpoint, opts.Body)

	c.mu.Lock()
	if c.current == call {
		c.current = nil
	}
	c.mu.Unlock()
	cancel(nil)

	if err != nil {
		if context.Cause(ctx) == errSuperseded {
			c.logger.Debug("request superseded",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
			)
			return nil, domain.ErrAborted
		}
		return nil, err
	}

	if cacheable {
		c.cache.Set(key, data)
	} else if method != http.MethodGet && c.cache != nil {
		// Mutation: invalidate the whole resource class. Coarse on purpose.
		prefix := resourcePrefix(endpoint)
		if prefix != "" {
			removed := c.cache.Clear(prefix)
			c.logger.Debug("cache invalidated",
				zap.String("prefix", prefix),
				zap.Int("removed", removed),
			)
		}
	}

	return data, nil
}

// resourcePrefix returns the first path segment of an endpoint:
// "/parts/5" -> "parts".
func resourcePrefix(endpoint string) string {
	trimmed := strings.TrimLeft(endpoint, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}
