package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethpandaops/runcenter/pkg/api/indexer"
	"github.com/ethpandaops/runcenter/pkg/api/indexstore"
	"github.com/ethpandaops/runcenter/pkg/api/storage"
	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/ethpandaops/runcenter/pkg/httpmetrics"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second

	// ServiceName is reported by the health endpoint.
	ServiceName = "runcenter-api"
)

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.APIConfig
	store      store.Store
	reports    storage.Reader
	presigner  *s3Presigner
	indexStore indexstore.Store
	indexer    indexer.Indexer
	metrics    *httpmetrics.Metrics
	httpServer *http.Server
	wg         sync.WaitGroup
	done       chan struct{}
}

// NewServer creates a new API server.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
) Server {
	return &server{
		log:  log.WithField("component", "api"),
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// Start opens the runs store and report storage, then starts the HTTP server
// and, when enabled, the background report indexer.
func (s *server) Start(ctx context.Context) error {
	s.store = store.NewStore(s.log, &s.cfg.Database)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	backend, err := storage.New(&s.cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating report storage: %w", err)
	}

	s.reports = backend

	if s.cfg.Storage.S3.Enabled && s.cfg.Storage.S3.PresignedURLs.Enabled {
		presigner, err := newS3Presigner(s.log, &s.cfg.Storage.S3)
		if err != nil {
			return fmt.Errorf("initializing s3 presigner: %w", err)
		}

		s.presigner = presigner

		s.log.Info("S3 presigned report downloads enabled")
	}

	// The indexer is prepared here so the index routes are wired, but it is
	// started only once the HTTP server is listening.
	if s.cfg.Indexing.Enabled {
		if err := s.prepareIndexing(ctx); err != nil {
			return fmt.Errorf("preparing indexing: %w", err)
		}
	}

	s.metrics = httpmetrics.New("runcenter_api")

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.buildRouter(),
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
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	if s.indexer != nil {
		if err := s.indexer.Start(ctx); err != nil {
			return fmt.Errorf("starting indexer: %w", err)
		}
	}

	return nil
}

// Stop gracefully shuts down the HTTP server and closes the stores.
func (s *server) Stop() error {
	close(s.done)

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

	if s.indexer != nil {
		if err := s.indexer.Stop(); err != nil {
			s.log.WithError(err).Warn("Indexer stop error")
		}
	}

	if s.indexStore != nil {
		if err := s.indexStore.Stop(); err != nil {
			s.log.WithError(err).Warn("Index store stop error")
		}
	}

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}

// prepareIndexing creates the index store and indexer without starting the
// background goroutine.
func (s *server) prepareIndexing(ctx context.Context) error {
	s.indexStore = indexstore.NewStore(s.log, &s.cfg.Indexing.Database)

	if err := s.indexStore.Start(ctx); err != nil {
		return fmt.Errorf("starting index store: %w", err)
	}

	interval, err := s.cfg.Indexing.IntervalDuration()
	if err != nil {
		return fmt.Errorf("parsing indexing interval: %w", err)
	}

	s.indexer = indexer.NewIndexer(
		s.log, s.indexStore, s.reports, interval, s.cfg.Indexing.Concurrency,
	)

	s.log.Info("Report indexing enabled")

	return nil
}
