package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"chromaflow/internal/api"
	"chromaflow/internal/app"
	"chromaflow/internal/config"
	"chromaflow/internal/csvio"
	"chromaflow/internal/identity"
	"chromaflow/internal/items"
	"chromaflow/internal/logging"
	"chromaflow/internal/syncbridge"
)

// ErrAlreadyRunning reports that another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another chromaflow daemon instance is already running")

// Daemon owns the controller, subscription and API server for one store.
type Daemon struct {
	cfg      *config.Config
	bridge   *syncbridge.Bridge
	logger   *slog.Logger
	listener net.Listener

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithListener serves the API on l instead of listening on api.bind.
func WithListener(l net.Listener) Option {
	return func(d *Daemon) { d.listener = l }
}

// New constructs a daemon over bridge.
func New(cfg *config.Config, bridge *syncbridge.Bridge, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || bridge == nil {
		return nil, errors.New("daemon requires config and sync bridge")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		bridge:   bridge,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Running reports whether Run is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Run acquires the daemon lock and serves until ctx ends or a component
// fails.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	initial, source := d.bridge.Load(ctx)
	d.logger.Info("items loaded",
		logging.String(logging.FieldEventType, "items_loaded"),
		logging.Int("item_count", len(initial)),
		logging.String("source", string(source)),
	)

	enc, err := csvio.ParseEncoding(d.cfg.CSV.Encoding)
	if err != nil {
		return fmt.Errorf("csv encoding: %w", err)
	}
	ctrl := app.NewController(initial, d.bridge, app.WithLogger(d.logger))
	server := api.NewServer(ctrl, api.Options{
		Bind:           d.cfg.API.Bind,
		AllowedOrigins: d.cfg.API.AllowedOrigins,
		Policy:         identity.Policy{AdminID: d.cfg.Identity.AdminID},
		Encoding:       enc,
		Logger:         d.logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		stop := d.bridge.Subscribe(gctx, func(list []items.Item) {
			ctrl.PushSnapshot(gctx, list)
		})
		<-gctx.Done()
		stop()
		return nil
	})
	g.Go(func() error {
		if d.listener != nil {
			return server.ServeListener(gctx, d.listener)
		}
		return server.Serve(gctx)
	})
	if len(initial) == 0 && d.cfg.Sync.SeedDemo {
		g.Go(func() error {
			return d.seed(gctx, ctrl)
		})
	}

	d.logger.Info("chromaflow daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.API.Bind),
	)
	err = g.Wait()
	d.logger.Info("chromaflow daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return err
}

// seed imports the sample fabrication list into an empty installation. The
// state stays dirty until an administrator saves it.
func (d *Daemon) seed(ctx context.Context, ctrl *app.Controller) error {
	list := csvio.Parse(csvio.SampleCSV)
	result, err := ctrl.Import(ctx, list, items.ImportOverwrite)
	if err != nil {
		if errors.Is(err, app.ErrClosed) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("seed demo items: %w", err)
	}
	d.logger.Info("demo items seeded",
		logging.String(logging.FieldEventType, "demo_seeded"),
		logging.Int("item_count", result.Added),
	)
	return nil
}
