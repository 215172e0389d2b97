package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"chromaflow/internal/app"
	"chromaflow/internal/config"
	"chromaflow/internal/identity"
	"chromaflow/internal/logging"
	"chromaflow/internal/storeaccess"
	"chromaflow/internal/syncbridge"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// commandLogger writes to stderr only; the CLI never appends to the
// daemon's log file.
func (c *commandContext) commandLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg, "")
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) withSession(ctx context.Context, fn func(storeaccess.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	session, err := storeaccess.Open(ctx, cfg, c.commandLogger())
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session)
}

// load returns the current collection, preferring the store over the cache.
func (c *commandContext) load(ctx context.Context) (app.State, syncbridge.Source, error) {
	var state app.State
	var source syncbridge.Source
	err := c.withSession(ctx, func(session storeaccess.Session) error {
		list, src := session.Bridge.Load(ctx)
		state, source = app.NewState(list), src
		return nil
	})
	return state, source, err
}

// requireAdmin rejects commands that persist changes when the configured
// user is not the administrator.
func (c *commandContext) requireAdmin() error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	policy := identity.Policy{AdminID: cfg.Identity.AdminID}
	userID, admin := policy.Check(identity.Static(cfg.Identity.UserID))
	if admin {
		return nil
	}
	if userID == "" {
		return errors.New("saving requires the administrator; set identity.user_id or CHROMAFLOW_USER_ID")
	}
	return fmt.Errorf("user %q is not allowed to save changes", userID)
}

// applyAndSave loads the collection, applies change and saves the result.
// A change that leaves the state clean is not saved.
func (c *commandContext) applyAndSave(ctx context.Context, change func(app.State) (app.State, error)) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	return c.withSession(ctx, func(session storeaccess.Session) error {
		list, source := session.Bridge.Load(ctx)
		if source != syncbridge.SourceRemote {
			return fmt.Errorf("store unreachable (loaded from %s); refusing to overwrite it", source)
		}
		state, err := change(app.NewState(list))
		if err != nil {
			return err
		}
		_, toSave, _, err := app.BeginSave(state)
		if errors.Is(err, app.ErrNothingToSave) {
			return nil
		}
		if err != nil {
			return err
		}
		return session.Bridge.Save(ctx, toSave)
	})
}

// loadDotEnv reads ./.env when present. Variables already set win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
