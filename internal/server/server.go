package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"novelkit/internal/asset/handle"
	"novelkit/internal/asset/repair"
	"novelkit/internal/asset/store"
	"novelkit/internal/asset/urlcache"
	"novelkit/internal/config"
	"novelkit/internal/export"
	"novelkit/internal/logging"
	"novelkit/internal/project"
)

// Server serves the editor API on the configured bind address.
type Server struct {
	bind     string
	token    string
	logger   *slog.Logger
	store    *store.Store
	cache    *urlcache.Cache
	repairer *repair.Service
	exporter *export.Pipeline
	projects *project.Store
	registry *handle.Registry

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New wires the API server against its collaborators.
func New(cfg *config.Config, st *store.Store, cache *urlcache.Cache, repairer *repair.Service, exporter *export.Pipeline, projects *project.Store, registry *handle.Registry, logger *slog.Logger) *Server {
	s := &Server{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		token:    strings.TrimSpace(cfg.Paths.APIToken),
		logger:   logging.NewComponentLogger(logger, "server"),
		store:    st,
		cache:    cache,
		repairer: repairer,
		exporter: exporter,
		projects: projects,
		registry: registry,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/storage", s.handleStorage)
	mux.HandleFunc("/api/handles", s.handleHandle)
	mux.HandleFunc("/api/projects", s.handleProjects)
	mux.HandleFunc("/api/projects/", s.handleProjectSubtree)
	s.handler = s.authenticate(mux)

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the routing tree, for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins serving and shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down outside of context cancellation.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound listen address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// authenticate enforces the optional bearer token on every route.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.token {
				s.writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	info, err := s.store.StorageInfo(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cacheStats := s.cache.Snapshot()
	s.writeJSON(w, http.StatusOK, storageResponse{
		UsedBytes:       info.Used,
		QuotaBytes:      info.Total,
		AvailableBytes:  info.Available,
		Assets:          info.Assets,
		Projects:        info.Projects,
		LiveHandles:     s.registry.Len(),
		CacheEntries:    cacheStats.Entries,
		CacheReferenced: cacheStats.Referenced,
	})
}

// handleHandle serves the bytes behind a live handle, the way the editor's
// preview pane loads media.
func (s *Server) handleHandle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	data, mime, ok := s.registry.Bytes(url)
	if !ok {
		s.writeError(w, http.StatusNotFound, "handle is not valid")
		return
	}
	if mime != "" {
		w.Header().Set("Content-Type", mime)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
