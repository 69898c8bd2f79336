// Package api serves the bookmark store over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tliron/commonlog"

	"github.com/nikbrunner/cm/internal/model"
	"github.com/nikbrunner/cm/internal/view"
)

func logger() commonlog.Logger {
	return commonlog.GetLogger("cm.api")
}

// Server exposes a Store over HTTP. The store is not safe for concurrent
// use, so every handler holds mu while it touches it.
type Server struct {
	router *chi.Mux
	mu     sync.Mutex
	store  *model.Store
	view   *view.Projection
	server *http.Server
}

// NewServer creates a Server for store with all routes registered.
func NewServer(store *model.Store) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	s := &Server{
		router: router,
		store:  store,
		view:   view.New(store),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Queries
	s.router.Get("/children", s.handleChildren)
	s.router.Get("/tree", s.handleTree)

	s.router.Route("/bookmarks", func(r chi.Router) {
		r.Get("/", s.handleListBookmarks)
		r.Post("/", s.handleAddBookmark)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetBookmark)
			r.Patch("/", s.handleRenameBookmark)
			r.Delete("/", s.handleRemoveBookmark)
			r.Post("/move", s.handleMoveBookmark)
		})
	})

	s.router.Route("/folders", func(r chi.Router) {
		r.Get("/", s.handleListFolders)
		r.Post("/", s.handleCreateFolder)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetFolder)
			r.Patch("/", s.handleRenameFolder)
			r.Delete("/", s.handleDeleteFolder)
			r.Post("/move", s.handleMoveFolder)
		})
	})

	// Ordering
	s.router.Post("/reorder", s.handleReorder)
	s.router.Post("/place", s.handlePlace)
	s.router.Post("/drop", s.handleDrop)

	// Exchange
	s.router.Get("/export", s.handleExport)
	s.router.Post("/import", s.handleImport)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger().Noticef("listening on %s", addr)
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
