package config

const (
	defaultDataDir         = "~/.local/share/chromaflow"
	defaultLogDir          = "~/.local/share/chromaflow/logs"
	defaultCollection      = "products"
	defaultCacheEnabled    = true
	defaultCSVEncoding     = "auto"
	defaultAPIBind         = "127.0.0.1:7490"
	defaultPollInterval    = 2
	defaultSeedDemo        = false
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	storeDatabaseFileName  = "chromaflow.db"
	cacheFileName          = "items_cache.json"
	lockFileName           = "chromaflowd.lock"
	defaultConfigLocation  = "~/.config/chromaflow/config.toml"
	projectConfigFileName  = "chromaflow.toml"
	envStoreDSN            = "CHROMAFLOW_STORE_DSN"
	envUserID              = "CHROMAFLOW_USER_ID"
	envAdminID             = "CHROMAFLOW_ADMIN_ID"
	envGoogleCredentials   = "GOOGLE_APPLICATION_CREDENTIALS"
	envGoogleCloudProject  = "GOOGLE_CLOUD_PROJECT"
	maxPollIntervalSeconds = 3600
)

// Default returns a Config populated with repository defaults. Paths are
// left unexpanded; Load expands them.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			Collection: defaultCollection,
		},
		Cache: Cache{
			Enabled: defaultCacheEnabled,
		},
		CSV: CSV{
			Encoding: defaultCSVEncoding,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Sync: Sync{
			PollInterval: defaultPollInterval,
			SeedDemo:     defaultSeedDemo,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
