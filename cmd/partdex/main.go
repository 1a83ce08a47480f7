package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/partdex/internal/cache"
	"github.com/kailas-cloud/partdex/internal/config"
	"github.com/kailas-cloud/partdex/internal/domain"
	"github.com/kailas-cloud/partdex/internal/fetch"
	"github.com/kailas-cloud/partdex/internal/kv"
	kvBolt "github.com/kailas-cloud/partdex/internal/kv/bolt"
	kvFile "github.com/kailas-cloud/partdex/internal/kv/file"
	kvMemory "github.com/kailas-cloud/partdex/internal/kv/memory"
	kvRedis "github.com/kailas-cloud/partdex/internal/kv/redis"
	kvSqlite "github.com/kailas-cloud/partdex/internal/kv/sqlite"
	logpkg "github.com/kailas-cloud/partdex/internal/logger"
	"github.com/kailas-cloud/partdex/internal/metrics"
	historyrepo "github.com/kailas-cloud/partdex/internal/repository/history"
	inventoryrepo "github.com/kailas-cloud/partdex/internal/repository/inventory"
	patternrepo "github.com/kailas-cloud/partdex/internal/repository/pattern"
	chiTransport "github.com/kailas-cloud/partdex/internal/transport/chi"
	openaiVoice "github.com/kailas-cloud/partdex/internal/transport/openai"
	healthuc "github.com/kailas-cloud/partdex/internal/usecase/health"
	voiceuc "github.com/kailas-cloud/partdex/internal/usecase/voice"
	"github.com/kailas-cloud/partdex/internal/version"
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting partdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	store, err := newStore(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to create kv store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	// Shared state: repositories load their persisted state once here.
	historyRepo := historyrepo.New(ctx, store, logger)
	patternRepo := patternrepo.New(ctx, store, cfg.Search.IDField, logger)

	// Response cache + coordinator in front of the upstream inventory service.
	metrics.RegisterCacheMetrics()
	responseCache := cache.New(time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.ResponseCacheTotal)
	transport := fetch.NewHTTPTransport(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.TimeoutSec)*time.Second)
	coordinator := fetch.NewCoordinator(transport, responseCache, logger)
	itemSource := inventoryrepo.New(coordinator, cfg.Upstream.Resource)

	// Voice capture is optional; without an API key the endpoint returns 501.
	var transcriber voiceuc.Transcriber
	if cfg.Voice.APIKey != "" {
		transcriber = openaiVoice.NewTranscriber(&openaiVoice.Config{
			APIKey:  cfg.Voice.APIKey,
			BaseURL: cfg.Voice.BaseURL,
			Model:   cfg.Voice.Model,
			Logger:  logger,
		})
		logger.Info("Voice transcription enabled", zap.String("model", cfg.Voice.Model))
	}
	voiceSvc := voiceuc.New(transcriber)

	healthSvc := healthuc.New(storePinger(store), upstreamChecker{transport: transport})

	searchCfg := chiTransport.SearchConfig{
		Fields:        toFieldPaths(cfg.Search.Fields),
		CategoryField: domain.FieldPath(cfg.Search.CategoryField),
		IDField:       cfg.Search.IDField,
	}
	server := chiTransport.NewServer(
		searchCfg, itemSource, historyRepo, patternRepo, responseCache, voiceSvc, healthSvc, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newStore builds the kv store selected by config.
func newStore(cfg config.StorageConfig) (kv.Store, error) {
	switch cfg.Driver {
	case "memory":
		return kvMemory.New(), nil
	case "file":
		return kvFile.New(cfg.Path)
	case "bolt":
		return kvBolt.Open(cfg.Path + "/partdex.db")
	case "sqlite":
		return kvSqlite.Open(cfg.Path + "/partdex.sqlite")
	case "redis":
		return kvRedis.New(kvRedis.Config{
			Addrs:     cfg.Addrs,
			Password:  cfg.Password,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// storePinger exposes the store's Ping to the health service when the
// backend has one (redis); memory/file/bolt/sqlite report nothing.
func storePinger(store kv.Store) healthuc.StorePinger {
	if p, ok := store.(healthuc.StorePinger); ok {
		return p
	}
	return nil
}

// upstreamChecker probes the upstream inventory service's health endpoint.
type upstreamChecker struct {
	transport fetch.Transport
}

func (u upstreamChecker) HealthCheck(ctx context.Context) error {
	if _, err := u.transport.Send(ctx, http.MethodGet, "/healthz", nil); err != nil {
		return fmt.Errorf("upstream health check: %w", err)
	}
	return nil
}

func toFieldPaths(fields []string) []domain.FieldPath {
	out := make([]domain.FieldPath, len(fields))
	for i, f := range fields {
		out[i] = domain.FieldPath(f)
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
