// Package runtime assembles a running tracker from configuration: the peer
// directory, the catalog, the UDP protocol engine and the admin API.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker"
	"github.com/marmos91/peertrack/pkg/api"
	"github.com/marmos91/peertrack/pkg/config"
	"github.com/marmos91/peertrack/pkg/directory"
	"github.com/marmos91/peertrack/pkg/metrics"
)

// DefaultShutdownTimeout bounds graceful shutdown when the config leaves it unset.
const DefaultShutdownTimeout = 30 * time.Second

// AuxiliaryServer is an HTTP server managed alongside the tracker.
type AuxiliaryServer interface {
	// Start serves until ctx is cancelled or the server fails.
	Start(ctx context.Context) error
	// Stop initiates graceful shutdown.
	Stop(ctx context.Context) error
	// Addr returns the bound address, or "" before the server listens.
	Addr() string
}

// Runtime owns every long-lived component of a tracker process.
type Runtime struct {
	cfg       *config.Config
	dir       directory.Directory
	engine    *tracker.Engine
	tracker   *tracker.Server
	apiServer AuxiliaryServer

	shutdownTimeout time.Duration

	serveOnce sync.Once
	closeOnce sync.Once
}

// New opens the directory, seeds the catalog and builds the tracker and API
// servers. Nothing is bound until Serve or Listen. Metrics are wired when the
// global registry has been initialized.
func New(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("runtime: nil config")
	}

	dir, err := directory.New(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}

	rt := &Runtime{
		cfg:             cfg,
		dir:             dir,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if rt.shutdownTimeout <= 0 {
		rt.shutdownTimeout = DefaultShutdownTimeout
	}

	if err := rt.seedCatalog(ctx); err != nil {
		_ = dir.Close()
		return nil, err
	}

	var opts []tracker.Option
	if cfg.Metrics.Enabled && metrics.IsEnabled() {
		opts = append(opts, tracker.WithMetrics(metrics.GetRegistry()))
	}

	rt.engine, err = tracker.NewEngine(cfg.Server.Tracker(), dir, opts...)
	if err != nil {
		_ = dir.Close()
		return nil, fmt.Errorf("failed to create tracker engine: %w", err)
	}
	rt.tracker = tracker.NewServer(cfg.Server.Listen(), rt.engine)

	if cfg.API.IsEnabled() {
		deps := api.Dependencies{
			Directory: dir,
			Sessions:  rt.engine.Sessions(),
		}
		if cfg.Metrics.Enabled {
			deps.Gatherer = metrics.Gatherer()
		}
		rt.apiServer = api.NewServer(cfg.API, deps)
	}

	return rt, nil
}

func (r *Runtime) seedCatalog(ctx context.Context) error {
	if _, err := directory.SeedCatalog(ctx, r.dir, r.cfg.Catalog.Files); err != nil {
		return fmt.Errorf("failed to seed inline catalog: %w", err)
	}

	if r.cfg.Catalog.Path == "" {
		return nil
	}

	files, err := directory.LoadCatalog(r.cfg.Catalog.Path)
	if err != nil {
		return err
	}
	if _, err := directory.SeedCatalog(ctx, r.dir, files); err != nil {
		return fmt.Errorf("failed to seed catalog %s: %w", r.cfg.Catalog.Path, err)
	}
	return nil
}

// Directory returns the peer directory.
func (r *Runtime) Directory() directory.Directory { return r.dir }

// Engine returns the protocol engine.
func (r *Runtime) Engine() *tracker.Engine { return r.engine }

// Listen binds the UDP socket and, when enabled, the API listener. Serve
// calls it; tests call it first to learn ephemeral ports.
func (r *Runtime) Listen() error {
	if err := r.tracker.Listen(); err != nil {
		return err
	}
	if srv, ok := r.apiServer.(interface{ Listen() error }); ok {
		if err := srv.Listen(); err != nil {
			r.tracker.Stop()
			return err
		}
	}
	return nil
}

// TrackerAddr returns the bound UDP address, or nil before Listen.
func (r *Runtime) TrackerAddr() *net.UDPAddr { return r.tracker.Addr() }

// APIAddr returns the bound API address, or "" when the API is disabled or
// not yet listening.
func (r *Runtime) APIAddr() string {
	if r.apiServer == nil {
		return ""
	}
	return r.apiServer.Addr()
}

// Serve runs the tracker, the API server and the catalog watcher until ctx
// is cancelled or a component fails, then shuts everything down. A second
// call returns immediately.
func (r *Runtime) Serve(ctx context.Context) error {
	var err error
	served := false

	r.serveOnce.Do(func() {
		served = true
		err = r.serve(ctx)
	})

	if !served {
		return errors.New("runtime: Serve already called")
	}
	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.Info("Starting peertrack runtime")

	if err := r.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	// 1. UDP tracker
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.tracker.Serve(ctx); err != nil {
			errChan <- fmt.Errorf("tracker error: %w", err)
		}
	}()

	// 2. Admin API
	if r.apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.apiServer.Start(ctx); err != nil {
				errChan <- fmt.Errorf("API server error: %w", err)
			}
		}()
	}

	// 3. Catalog watcher
	if r.cfg.Catalog.Watch && r.cfg.Catalog.Path != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := directory.WatchCatalog(ctx, r.dir, r.cfg.Catalog.Path); err != nil {
				// The tracker keeps serving the catalog it already has.
				logger.Warn("Catalog watcher stopped", logger.KeyError, err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", "reason", context.Cause(ctx))
	case serveErr = <-errChan:
		logger.Error("Component failed - initiating shutdown", logger.KeyError, serveErr)
	}

	cancel()
	r.tracker.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.shutdownTimeout):
		logger.Warn("Shutdown timed out", "timeout", r.shutdownTimeout)
	}

	if err := r.Close(); err != nil {
		logger.Warn("Error closing directory", logger.KeyError, err)
	}

	logger.Info("peertrack runtime stopped")
	return serveErr
}

// Close releases the directory. Serve calls it on shutdown; callers that
// never Serve must call it themselves.
func (r *Runtime) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.tracker.Stop()
		err = r.dir.Close()
	})
	return err
}
