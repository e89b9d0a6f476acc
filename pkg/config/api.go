package config

import (
	"fmt"
	"time"

	"github.com/ethpandaops/runcenter/pkg/fsutil"
)

// APIConfig contains all runs API server configuration.
type APIConfig struct {
	Version    string           `yaml:"version" mapstructure:"version"`
	Server     APIServerConfig  `yaml:"server" mapstructure:"server"`
	Pagination PaginationConfig `yaml:"pagination" mapstructure:"pagination"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Indexing   IndexingConfig   `yaml:"indexing" mapstructure:"indexing"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Public  RateLimitTier `yaml:"public,omitempty" mapstructure:"public"`
}

// RateLimitTier defines request limits for a specific tier.
type RateLimitTier struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// PaginationConfig bounds the page_size query parameter.
type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size" mapstructure:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size" mapstructure:"max_page_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
	MySQL    MySQLConfig          `yaml:"mysql,omitempty" mapstructure:"mysql"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// MySQLConfig contains MySQL connection settings.
type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// StorageConfig contains the report storage backends. When S3 is enabled it
// takes precedence over local storage.
type StorageConfig struct {
	Local LocalStorageConfig `yaml:"local" mapstructure:"local"`
	S3    S3Config           `yaml:"s3" mapstructure:"s3"`
}

// LocalStorageConfig stores reports under Dir/daily/. Owner optionally
// chowns written reports and is formatted as "UID:GID".
type LocalStorageConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Owner   string `yaml:"owner,omitempty" mapstructure:"owner"`
}

// S3Config stores reports under Prefix/daily/ in Bucket.
type S3Config struct {
	Enabled         bool                `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string              `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string              `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string              `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string              `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string              `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string              `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool                `yaml:"force_path_style" mapstructure:"force_path_style"`
	PresignedURLs   PresignedURLsConfig `yaml:"presigned_urls,omitempty" mapstructure:"presigned_urls"`
}

// PresignedURLsConfig makes report downloads redirect to presigned S3 URLs.
type PresignedURLsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Expiry  string `yaml:"expiry,omitempty" mapstructure:"expiry"`
}

// IndexingConfig configures the background report indexer.
type IndexingConfig struct {
	Enabled     bool           `yaml:"enabled" mapstructure:"enabled"`
	Interval    string         `yaml:"interval,omitempty" mapstructure:"interval"`
	Concurrency int            `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
	Database    DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// IntervalDuration returns the parsed indexing interval.
func (c *IndexingConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration(c.Interval, time.Minute)
}

// ExpiryDuration returns the parsed presigned URL expiry.
func (c *PresignedURLsConfig) ExpiryDuration() (time.Duration, error) {
	return parseDuration(c.Expiry, time.Hour)
}

// ValidateAPI checks the settings required by the runs API server.
func (c *Config) ValidateAPI() error {
	if c.API.Server.Listen == "" {
		return fmt.Errorf("api.server.listen is required")
	}

	if c.API.Pagination.DefaultPageSize > c.API.Pagination.MaxPageSize {
		return fmt.Errorf(
			"api.pagination.default_page_size (%d) exceeds max_page_size (%d)",
			c.API.Pagination.DefaultPageSize, c.API.Pagination.MaxPageSize,
		)
	}

	if c.API.Server.RateLimit.Enabled &&
		c.API.Server.RateLimit.Public.RequestsPerMinute <= 0 {
		return fmt.Errorf("api.server.rate_limit.public.requests_per_minute must be positive")
	}

	if err := c.API.Database.Validate(); err != nil {
		return fmt.Errorf("api.database: %w", err)
	}

	if err := c.API.Storage.Validate(); err != nil {
		return fmt.Errorf("api.storage: %w", err)
	}

	if c.API.Indexing.Enabled {
		if _, err := c.API.Indexing.IntervalDuration(); err != nil {
			return fmt.Errorf("api.indexing.interval: %w", err)
		}

		if err := c.API.Indexing.Database.Validate(); err != nil {
			return fmt.Errorf("api.indexing.database: %w", err)
		}
	}

	return nil
}

// Validate checks that the selected driver has its required settings.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required")
		}
	case "postgres":
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("postgres.host and postgres.database are required")
		}
	case "mysql":
		if c.MySQL.Host == "" || c.MySQL.Database == "" {
			return fmt.Errorf("mysql.host and mysql.database are required")
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}

	return nil
}

// Validate checks that a usable storage backend is configured.
func (c *StorageConfig) Validate() error {
	switch {
	case c.S3.Enabled:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required")
		}

		if c.S3.PresignedURLs.Enabled {
			if _, err := c.S3.PresignedURLs.ExpiryDuration(); err != nil {
				return fmt.Errorf("s3.presigned_urls.expiry: %w", err)
			}
		}
	case c.Local.Enabled:
		if c.Local.Dir == "" {
			return fmt.Errorf("local.dir is required")
		}

		if _, err := fsutil.ParseOwner(c.Local.Owner); err != nil {
			return fmt.Errorf("local.owner: %w", err)
		}
	default:
		return fmt.Errorf("no storage backend enabled")
	}

	return nil
}
