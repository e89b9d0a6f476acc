package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethpandaops/runcenter/pkg/client"
	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/ethpandaops/runcenter/pkg/httpmetrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the dashboard HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error

	// Handler returns the dashboard router.
	Handler() http.Handler
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.DashboardConfig
	client     client.Client
	renderer   *renderer
	metrics    *httpmetrics.Metrics
	router     http.Handler
	httpServer *http.Server
	wg         sync.WaitGroup
}

// NewServer creates the dashboard server rendering runs fetched through c.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.DashboardConfig,
	c client.Client,
) (Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	s := &server{
		log:      log.WithField("component", "dashboard"),
		cfg:      cfg,
		client:   c,
		renderer: newRenderer(loc),
		metrics:  httpmetrics.New("runcenter_dashboard"),
	}

	s.router = s.buildRouter()

	return s, nil
}

// Handler returns the dashboard router.
func (s *server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves the dashboard in the background.
func (s *server) Start(_ context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).
			Info("Dashboard server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("Dashboard server stopped")

	return nil
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware)

	r.Get("/", s.handleRunsPage)
	r.Get("/reports/daily/download", s.handleDownloadReport)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// requestLogger logs incoming HTTP requests.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// handleRunsPage renders the runs page for ?page=.
func (s *server) handleRunsPage(w http.ResponseWriter, r *http.Request) {
	page := NewRunsPage(s.log, s.client, s.cfg.PageSize)
	<-page.SetPage(r.Context(), parsePage(r.URL.Query().Get("page")))

	s.render(w, http.StatusOK, page.State())
}

// handleDownloadReport proxies the report for ?dt= to the browser. On
// failure the runs page for ?page= is shown with the download error.
func (s *server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := NewRunsPage(s.log, s.client, s.cfg.PageSize)
	saver := newResponseSaver(w)

	err := page.DownloadReport(r.Context(), q.Get("dt"), saver)
	if err == nil {
		return
	}

	if saver.started {
		// Headers are already out; nothing more can be sent.
		return
	}

	<-page.SetPage(r.Context(), parsePage(q.Get("page")))

	s.render(w, http.StatusBadGateway, page.State())
}

type healthzResponse struct {
	OK      bool            `json:"ok"`
	API     json.RawMessage `json:"api,omitempty"`
	Message string          `json:"message,omitempty"`
}

// handleHealthz reports whether the runs API is reachable.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	res, err := s.client.Health(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable,
			healthzResponse{Message: client.Message(err)})

		return
	}

	status := http.StatusOK
	if !res.OK {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthzResponse{OK: res.OK, API: res.Data})
}

// render writes the runs page. The page is buffered so a template failure
// never leaves a partial response.
func (s *server) render(w http.ResponseWriter, status int, state State) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, state); err != nil {
		s.log.WithError(err).Error("Failed to render runs page")
		http.Error(w, "rendering page", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// parsePage reads a 1-based page number, treating anything invalid as 1.
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}

	return page
}
