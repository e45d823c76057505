// Package web serves the catalog REST API and the graph, analytics and
// metadata endpoints.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/service-catalog/pkg/analytics"
	"github.com/ritzau/service-catalog/pkg/logging"
	"github.com/ritzau/service-catalog/pkg/metrics"
	"github.com/ritzau/service-catalog/pkg/pubsub"
	"github.com/ritzau/service-catalog/pkg/source"
	"github.com/ritzau/service-catalog/pkg/store"
	"github.com/ritzau/service-catalog/pkg/view"
)

const (
	maxBodyBytes     = 1 << 20
	shutdownTimeout  = 5 * time.Second
	defaultKeepAlive = 25 * time.Second
)

// Server wires the store, the metadata loader and the event publisher to HTTP.
type Server struct {
	router    *mux.Router
	store     *store.Store
	loader    *source.Loader
	publisher *pubsub.SSEPublisher

	corsOrigin string
	topN       int
	keepAlive  time.Duration
	now        func() time.Time
	log        *slog.Logger

	mu        sync.Mutex
	snapshots map[string]*view.Snapshot // dataset -> last published graph
}

// Option configures a Server
type Option func(*Server)

// WithCORSOrigin sets Access-Control-Allow-Origin. Empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithTopN sets the default analytics list length.
func WithTopN(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithClock overrides the clock used for staleness and analytics.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithKeepAlive sets the SSE keep-alive interval.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// NewServer creates the server and subscribes it to store and loader changes.
func NewServer(st *store.Store, loader *source.Loader, opts ...Option) *Server {
	publisher := pubsub.NewSSEPublisher()
	// New subscribers only need the current state
	publisher.ConfigureTopic(pubsub.TopicMetadataStatus, pubsub.TopicConfig{BufferSize: 1})
	publisher.ConfigureTopic(pubsub.TopicGraph, pubsub.TopicConfig{BufferSize: 10})

	s := &Server{
		router:     mux.NewRouter(),
		store:      st,
		loader:     loader,
		publisher:  publisher,
		corsOrigin: "*",
		topN:       analytics.DefaultLimit,
		keepAlive:  defaultKeepAlive,
		now:        time.Now,
		log:        logging.New("web"),
		snapshots:  make(map[string]*view.Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Baselines so the first change is published as a diff
	s.snapshots[sourceMetadata] = view.NewSnapshot(view.Full(s.buildIndex(sourceMetadata)))
	s.snapshots[sourceCatalog] = view.NewSnapshot(view.Full(s.buildIndex(sourceCatalog)))
	s.publishStatus(loader.Status())
	metrics.SetDatasetSize(sourceCatalog, st.Len())

	loader.OnLoad(func(status source.Status) {
		s.publishStatus(status)
		s.publishGraphChange(sourceMetadata)
	})
	st.OnChange(func() {
		metrics.SetDatasetSize(sourceCatalog, st.Len())
		s.publishGraphChange(sourceCatalog)
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.metricsMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/services", s.handleListServices).Methods(http.MethodGet)
	s.router.HandleFunc("/services", s.handleCreateService).Methods(http.MethodPost)
	s.router.HandleFunc("/services/{name}", s.handleGetService).Methods(http.MethodGet)
	s.router.HandleFunc("/services/{name}", s.handleReplaceService).Methods(http.MethodPut)
	s.router.HandleFunc("/services/{name}", s.handleDeleteService).Methods(http.MethodDelete)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/graph", s.handleGraph).Methods(http.MethodGet)
	api.HandleFunc("/graph/nodes/{id}", s.handleNodeDetails).Methods(http.MethodGet)
	api.HandleFunc("/graph/nodes/{id}/neighborhood", s.handleNeighborhood).Methods(http.MethodGet)
	api.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/metadata/status", s.handleMetadataStatus).Methods(http.MethodGet)
	api.HandleFunc("/metadata/refresh", s.handleMetadataRefresh).Methods(http.MethodPost)
	api.HandleFunc("/subscribe/{topic}", s.handleSubscribe).Methods(http.MethodGet)

	ref := s.router.PathPrefix("/reference").Subrouter()
	ref.HandleFunc("/teams", s.handleTeams).Methods(http.MethodGet)
	ref.HandleFunc("/pillars", s.handlePillars).Methods(http.MethodGet)
	ref.HandleFunc("/domains", s.handleDomains).Methods(http.MethodGet)
	ref.HandleFunc("/domains/check", s.handleDomainCheck).Methods(http.MethodGet)

	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})
}

// Handler returns the router wrapped in request logging and CORS.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(corsMiddleware(s.corsOrigin, s.router))
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
// Open event streams end with ctx.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.publisher.Close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	_ = s.publisher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Publisher exposes the event publisher.
func (s *Server) Publisher() *pubsub.SSEPublisher {
	return s.publisher
}
