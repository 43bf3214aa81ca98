// Package daemon assembles and runs the full service: index registry,
// queue, scheduled indexers, optional filesystem watcher and the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/fulltextd/internal/config"
	"github.com/Aman-CERP/fulltextd/internal/extract"
	"github.com/Aman-CERP/fulltextd/internal/index"
	"github.com/Aman-CERP/fulltextd/internal/language"
	"github.com/Aman-CERP/fulltextd/internal/metrics"
	"github.com/Aman-CERP/fulltextd/internal/pipeline"
	"github.com/Aman-CERP/fulltextd/internal/queue"
	"github.com/Aman-CERP/fulltextd/internal/search"
	"github.com/Aman-CERP/fulltextd/internal/server"
	"github.com/Aman-CERP/fulltextd/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// Daemon owns the wired service components for one process.
type Daemon struct {
	cfg config.Config
	log *slog.Logger
}

func New(cfg config.Config, log *slog.Logger) *Daemon {
	return &Daemon{cfg: cfg, log: log}
}

// Run starts the service and blocks until the context is cancelled. The
// index root is guarded by a file lock so two daemons never write the same
// shards.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.cfg.Index.Root, 0o755); err != nil {
		return fmt.Errorf("create index root: %w", err)
	}

	lock := flock.New(filepath.Join(d.cfg.Index.Root, ".fulltextd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("index root %s is in use by another instance", d.cfg.Index.Root)
	}
	defer func() { _ = lock.Unlock() }()

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	reg, err := index.NewRegistry(d.cfg.Index.Root, d.log)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	store, err := queue.NewSQLiteStore(d.cfg.Queue.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q := queue.New(store, m, d.log)
	detector := language.NewDetector()
	pipe := pipeline.New(reg, detector, extract.NewPlainText(), d.log)
	engine := search.NewEngine(reg, detector, m, d.log)
	api := server.New(q, engine, m, promRegistry, d.log)

	scheduler := cron.New()
	if err := d.scheduleIndexers(scheduler, q, pipe, m); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	g, gctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{Addr: d.cfg.Server.Addr, Handler: api.Handler()}
	g.Go(func() error {
		d.log.Info("http server listening", "addr", d.cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if len(d.cfg.Watch.Paths) > 0 {
		w := watcher.New(q, d.log)
		g.Go(func() error {
			err := w.Run(gctx, d.cfg.Watch.Paths)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	d.log.Info("daemon started",
		"mode", string(d.cfg.Indexer.Mode),
		"rate", d.cfg.Indexer.Rate,
		"index_root", d.cfg.Index.Root)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// scheduleIndexers registers the queue drain job. Parallel mode fans one
// cycle out to the configured worker count, each claiming independently;
// serial mode runs one sweep whose busy latch skips overlapping fires.
func (d *Daemon) scheduleIndexers(scheduler *cron.Cron, q *queue.Queue, pipe *pipeline.Pipeline, m *metrics.Metrics) error {
	spec := fmt.Sprintf("@every %s", d.cfg.Indexer.Rate)

	var job func()
	switch d.cfg.Indexer.Mode {
	case config.ModeParallel:
		ix := queue.NewParallelIndexer(q, pipe, m, d.log)
		workers := d.cfg.Indexer.Workers
		job = func() {
			var wg errgroup.Group
			for i := 0; i < workers; i++ {
				wg.Go(func() error {
					ix.Cycle()
					return nil
				})
			}
			_ = wg.Wait()
		}
	case config.ModeSerial:
		ix := queue.NewSerialIndexer(q, pipe, m, d.log)
		job = ix.Cycle
	default:
		return fmt.Errorf("unknown indexer mode %q", d.cfg.Indexer.Mode)
	}

	_, err := scheduler.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("schedule indexer: %w", err)
	}
	return nil
}
