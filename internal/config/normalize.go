package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeIdentity()
	c.normalizeCSV()
	c.normalizeAPI()
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = defaultPollInterval
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv(envStoreDSN); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	c.Store.Collection = strings.TrimSpace(c.Store.Collection)
	if c.Store.Collection == "" {
		c.Store.Collection = defaultCollection
	}
	c.Store.CredentialsFile = strings.TrimSpace(c.Store.CredentialsFile)
	if c.Store.CredentialsFile == "" {
		if value, ok := os.LookupEnv(envGoogleCredentials); ok {
			c.Store.CredentialsFile = strings.TrimSpace(value)
		}
	}
	if c.Store.CredentialsFile != "" {
		var err error
		if c.Store.CredentialsFile, err = expandPath(c.Store.CredentialsFile); err != nil {
			return fmt.Errorf("store.credentials_file: %w", err)
		}
	}
	c.Store.ProjectID = strings.TrimSpace(c.Store.ProjectID)
	if c.Store.ProjectID == "" {
		if value, ok := os.LookupEnv(envGoogleCloudProject); ok {
			c.Store.ProjectID = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.DataDir, cacheFileName)
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.UserID = strings.TrimSpace(c.Identity.UserID)
	if c.Identity.UserID == "" {
		if value, ok := os.LookupEnv(envUserID); ok {
			c.Identity.UserID = strings.TrimSpace(value)
		}
	}
	c.Identity.AdminID = strings.TrimSpace(c.Identity.AdminID)
	if c.Identity.AdminID == "" {
		if value, ok := os.LookupEnv(envAdminID); ok {
			c.Identity.AdminID = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeCSV() {
	c.CSV.Encoding = strings.ToLower(strings.TrimSpace(c.CSV.Encoding))
	if c.CSV.Encoding == "" {
		c.CSV.Encoding = defaultCSVEncoding
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	origins := c.API.AllowedOrigins[:0]
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
