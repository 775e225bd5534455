package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	v1 "github.com/peskas/gateway/internal/api/v1"
	"github.com/peskas/gateway/internal/artifact"
	"github.com/peskas/gateway/internal/config"
	"github.com/peskas/gateway/internal/domain"
	"github.com/peskas/gateway/internal/policy"
	"github.com/peskas/gateway/internal/query"
	"github.com/peskas/gateway/internal/schema"
	"github.com/peskas/gateway/internal/server/middleware"
)

// Server is the HTTP server that wires all gateway routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds the lifetime of
// background middleware goroutines (rate limiter cleanup).
func New(
	ctx context.Context,
	cfg *config.Config,
	registry *schema.Registry,
	snapshot *policy.Snapshot,
	evaluator *policy.Evaluator,
	resolver *artifact.Resolver,
	engine *query.Engine,
	sink domain.AuditSink,
) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}).Handler)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	datasets := v1.NewDatasetHandler(
		registry,
		evaluator,
		resolver,
		engineAdapter{engine},
		sink,
		cfg.Query.DefaultLimit,
		cfg.Query.MaxLimit,
		cfg.Query.RequestTimeout,
	)

	// All API routes require a valid API key; the metadata surface is typed
	// via huma, the streaming dataset endpoints are raw chi handlers.
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(snapshot, sink))
		r.Use(middleware.RateLimit(ctx, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))

		datasets.RegisterDatasetRoutes(r)

		apiConfig := huma.DefaultConfig("Peskas Fishery Data API", "1.0.0")
		apiConfig.Servers = []*huma.Server{{URL: "/api/v1"}}
		api := humachi.New(r, apiConfig)
		v1.RegisterMetadataRoutes(api, registry)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// engineAdapter narrows *query.Engine to the handler's interface. The
// explicit nil check keeps a typed nil stream from leaking into the
// interface value.
type engineAdapter struct {
	engine *query.Engine
}

func (a engineAdapter) Execute(ctx context.Context, eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor, path string) (v1.ResultStream, error) {
	rows, err := a.engine.Execute(ctx, eq, desc, path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
