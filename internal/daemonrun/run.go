package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"chromaflow/internal/config"
	"chromaflow/internal/daemon"
	"chromaflow/internal/logging"
	"chromaflow/internal/preflight"
	"chromaflow/internal/storeaccess"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the chromaflow daemon and blocks until a signal arrives or a
// component fails.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(cfg, "chromaflowd")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logStoreSnapshot(logger, cfg)
	pidPath := filepath.Join(cfg.Paths.DataDir, "chromaflowd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	session, err := storeaccess.Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open store", logging.Error(err), logging.String("dsn", redactDSN(cfg.StoreDSN())))
		return err
	}
	defer session.Close()
	runPreflightChecks(signalCtx, logger, cfg, session)

	d, err := daemon.New(cfg, session.Bridge, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Run(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon stopped with error", "daemon_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind and store connectivity"),
		)
		return err
	}
	logger.Info("chromaflow daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStoreSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("store snapshot",
		logging.String(logging.FieldEventType, "store_snapshot"),
		logging.String("dsn", redactDSN(cfg.StoreDSN())),
		logging.String("collection", cfg.Store.Collection),
		logging.Bool("cache_enabled", cfg.Cache.Enabled),
		logging.String("cache_path", cfg.CachePath()),
		logging.Bool("admin_configured", cfg.Identity.AdminID != ""),
		logging.Bool("seed_demo", cfg.Sync.SeedDemo),
	)
}

// runPreflightChecks logs failed checks. The daemon still starts: the
// bridge falls back to the cache while the store is unreachable.
func runPreflightChecks(ctx context.Context, logger *slog.Logger, cfg *config.Config, session storeaccess.Session) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg, session.Remote)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run chromaflow doctor for details"),
			logging.String(logging.FieldImpact, "the daemon may serve cached or stale items"),
		)
	}
}
