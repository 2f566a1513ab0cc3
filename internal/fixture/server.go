package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// DefaultPort matches the port the real catalog service listens on.
const DefaultPort = 5000

// Server is the fixture catalog service.
type Server struct {
	store  *Store
	port   int
	watch  bool
	logger *slog.Logger
}

// Config holds configuration for the fixture server.
type Config struct {
	Dir    string
	Port   int
	Watch  bool
	Logger *slog.Logger
}

// NewServer creates a new fixture server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return &Server{
		store:  NewStore(cfg.Dir, logger),
		port:   port,
		watch:  cfg.Watch,
		logger: logger,
	}
}

// Store returns the backing fixture store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the routes of the catalog contract mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/afm-files", s.handleFiles)
		r.Get("/afm-files/detail/{filename}", s.handleDetail)
		r.Get("/afm-files/profile/{filename}/{point}", s.handleProfile)
		r.Get("/afm-files/image/{filename}/{point}", s.handleImage)
		r.Get("/afm-files/image-file/{filename}/{point}", s.handleImageFile)
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting fixture server", "addr", fmt.Sprintf("http://localhost:%d/api", s.port), "dir", s.store.Dir())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: middleware.Logger(s.Handler()),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down fixture server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	tool := toolParam(r)

	recs, err := s.store.Catalog(tool)
	if err != nil {
		// An unknown tool is a server failure, as with the real service.
		s.logger.Warn("catalog load failed", "tool", tool, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, response{
			Error:   err.Error(),
			Message: "Failed to load AFM file data",
		})
		return
	}

	total := len(recs)
	writeJSONResponse(w, http.StatusOK, response{
		Success: true,
		Data:    recs,
		Total:   &total,
		Tool:    tool,
		Message: fmt.Sprintf("Successfully loaded %d AFM measurements for %s", total, tool),
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	tool := toolParam(r)
	filename := pathParam(r, "filename")

	d, err := s.store.Detail(tool, filename)
	if err != nil {
		s.writeError(w, tool, err, "Measurement file not found",
			fmt.Sprintf("No detail found for filename: %s in tool %s", filename, tool))
		return
	}

	writeJSONResponse(w, http.StatusOK, response{
		Success: true,
		Data:    d,
		Message: fmt.Sprintf("Successfully loaded measurement data for %s from %s", filename, tool),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	tool := toolParam(r)
	filename, point := pathParam(r, "filename"), pathParam(r, "point")

	pts, err := s.store.Profile(tool, filename, point)
	if err != nil {
		s.writeError(w, tool, err, "Profile file not found",
			fmt.Sprintf("No profile file found for filename: %s, point: %s in tool %s", filename, point, tool))
		return
	}

	count := len(pts)
	writeJSONResponse(w, http.StatusOK, response{
		Success: true,
		Data:    pts,
		Count:   &count,
		Tool:    tool,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	tool := toolParam(r)
	filename, point := pathParam(r, "filename"), pathParam(r, "point")

	path, err := s.store.ImagePath(tool, filename, point)
	if err != nil {
		s.writeError(w, tool, err, "Image file not found",
			fmt.Sprintf("No image found for filename: %s, point: %s in tool %s", filename, point, tool))
		return
	}

	name := baseName(filename) + "_" + point + ".png"
	writeJSONResponse(w, http.StatusOK, response{
		Success: true,
		Data: catalog.ImageInfo{
			Filename:     name,
			Path:         path,
			RelativePath: "tiff_dir/" + name,
			URL: "/api/afm-files/image-file/" + url.PathEscape(filename) + "/" + url.PathEscape(point) +
				"?" + url.Values{"tool": {tool}}.Encode(),
		},
		Tool: tool,
	})
}

func (s *Server) handleImageFile(w http.ResponseWriter, r *http.Request) {
	tool := toolParam(r)
	path, err := s.store.ImagePath(tool, pathParam(r, "filename"), pathParam(r, "point"))
	if err != nil {
		s.writeError(w, tool, err, "Image file not found", "")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) writeError(w http.ResponseWriter, tool string, err error, notFound, message string) {
	if errors.Is(err, ErrNotFound) {
		writeJSONResponse(w, http.StatusNotFound, response{Error: notFound, Message: message, Tool: tool})
		return
	}
	s.logger.Error("fixture read failed", "tool", tool, "error", err)
	writeJSONResponse(w, http.StatusInternalServerError, response{Error: err.Error(), Tool: tool})
}

func toolParam(r *http.Request) string {
	if tool := r.URL.Query().Get("tool"); tool != "" {
		return tool
	}
	return catalog.DefaultTool
}

// pathParam returns a decoded URL parameter. chi matches against the raw
// path when the request carries escapes, e.g. '#' in filenames.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
