package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "RUNCENTER"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultAPIListen is the default listen address of the runs API.
	DefaultAPIListen = ":8000"

	// DefaultDashboardListen is the default listen address of the dashboard.
	DefaultDashboardListen = ":8080"

	// DefaultAPIBaseURL is where the dashboard expects the runs API.
	DefaultAPIBaseURL = "http://127.0.0.1:8000/api"

	// DefaultPageSize is the number of runs shown per dashboard page.
	DefaultPageSize = 20

	// MaxPageSize is the largest page_size accepted by the runs API.
	MaxPageSize = 100

	// DefaultVersion is reported by the health endpoint when unset.
	DefaultVersion = "0.1.0"

	// DefaultSQLitePath is the default runs database file.
	DefaultSQLitePath = "./runcenter.db"

	// DefaultReportsDir is the default local report storage directory.
	DefaultReportsDir = "./reports"
)

// Config is the root configuration for runcenter.
type Config struct {
	Global    GlobalConfig    `yaml:"global" mapstructure:"global"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// defaults lists every known key so that env overrides apply even when the
// key is absent from all config files.
var defaults = map[string]any{
	"global.log_level": DefaultLogLevel,

	"api.version": DefaultVersion,

	"api.server.listen":                                DefaultAPIListen,
	"api.server.cors_origins":                          []string{"*"},
	"api.server.rate_limit.enabled":                    false,
	"api.server.rate_limit.public.requests_per_minute": 600,

	"api.pagination.default_page_size": DefaultPageSize,
	"api.pagination.max_page_size":     MaxPageSize,

	"api.database.driver":            "sqlite",
	"api.database.sqlite.path":       DefaultSQLitePath,
	"api.database.postgres.host":     "127.0.0.1",
	"api.database.postgres.port":     5432,
	"api.database.postgres.user":     "",
	"api.database.postgres.password": "",
	"api.database.postgres.database": "runcenter",
	"api.database.postgres.ssl_mode": "disable",
	"api.database.mysql.host":        "127.0.0.1",
	"api.database.mysql.port":        3306,
	"api.database.mysql.user":        "",
	"api.database.mysql.password":    "",
	"api.database.mysql.database":    "runcenter",

	"api.storage.local.enabled":             true,
	"api.storage.local.dir":                 DefaultReportsDir,
	"api.storage.local.owner":               "",
	"api.storage.s3.enabled":                false,
	"api.storage.s3.endpoint_url":           "",
	"api.storage.s3.region":                 "",
	"api.storage.s3.bucket":                 "",
	"api.storage.s3.prefix":                 "reports",
	"api.storage.s3.access_key_id":          "",
	"api.storage.s3.secret_access_key":      "",
	"api.storage.s3.force_path_style":       false,
	"api.storage.s3.presigned_urls.enabled": false,
	"api.storage.s3.presigned_urls.expiry":  "1h",

	"api.indexing.enabled":              false,
	"api.indexing.interval":             "60s",
	"api.indexing.concurrency":          4,
	"api.indexing.database.driver":      "sqlite",
	"api.indexing.database.sqlite.path": "./runcenter-index.db",

	"dashboard.server.listen": DefaultDashboardListen,
	"dashboard.api.base_url":  DefaultAPIBaseURL,
	"dashboard.api.timeout":   "10s",
	"dashboard.page_size":     DefaultPageSize,
	"dashboard.timezone":      "Local",
}

// Load reads and merges the given configuration files in order. Later files
// override earlier ones and RUNCENTER_* environment variables override both.
// With no paths only defaults and environment variables are used.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for i, path := range paths {
		v.SetConfigFile(path)

		var err error
		if i == 0 {
			err = v.ReadInConfig()
		} else {
			err = v.MergeInConfig()
		}

		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills values that may have been explicitly blanked.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.API.Version == "" {
		c.API.Version = DefaultVersion
	}

	if c.API.Pagination.DefaultPageSize <= 0 {
		c.API.Pagination.DefaultPageSize = DefaultPageSize
	}

	if c.API.Pagination.MaxPageSize <= 0 {
		c.API.Pagination.MaxPageSize = MaxPageSize
	}

	if c.Dashboard.PageSize <= 0 {
		c.Dashboard.PageSize = DefaultPageSize
	}
}

// parseDuration parses an optional duration string, returning def when empty.
func parseDuration(value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", value)
	}

	return d, nil
}
