package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"chromaflow/internal/csvio"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateCSV(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	if strings.ContainsAny(c.Store.Collection, "/ ") {
		return fmt.Errorf("store.collection %q must not contain slashes or spaces", c.Store.Collection)
	}
	lower := strings.ToLower(c.Store.DSN)
	if strings.HasPrefix(lower, "firestore:") && c.Store.ProjectID == "" {
		if strings.Trim(strings.TrimPrefix(lower, "firestore:"), "/") == "" {
			return errors.New("store.project_id is required for firestore (or use firestore://<project>)")
		}
	}
	return nil
}

func (c *Config) validateCSV() error {
	if _, err := csvio.ParseEncoding(c.CSV.Encoding); err != nil {
		return fmt.Errorf("csv.encoding: %w", err)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind %q: %w", c.API.Bind, err)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.PollInterval > maxPollIntervalSeconds {
		return fmt.Errorf("sync.poll_interval must be at most %d seconds", maxPollIntervalSeconds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
