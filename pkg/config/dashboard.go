package config

import (
	"fmt"
	"net/url"
	"time"
)

// DashboardConfig contains the operator dashboard settings. Timezone is an
// IANA zone name used to render timestamps, or "Local".
type DashboardConfig struct {
	Server   DashboardServerConfig `yaml:"server" mapstructure:"server"`
	API      DashboardAPIConfig    `yaml:"api" mapstructure:"api"`
	PageSize int                   `yaml:"page_size" mapstructure:"page_size"`
	Timezone string                `yaml:"timezone" mapstructure:"timezone"`
}

// DashboardServerConfig contains the dashboard HTTP server settings.
type DashboardServerConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// DashboardAPIConfig points the dashboard at the runs API.
type DashboardAPIConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Timeout string `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// TimeoutDuration returns the parsed API request timeout.
func (c *DashboardAPIConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(c.Timeout, 10*time.Second)
}

// Location resolves the configured time zone.
func (c *DashboardConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}

	return time.LoadLocation(c.Timezone)
}

// ValidateClient checks the settings needed to talk to the runs API.
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.Dashboard.API.BaseURL)
	if err != nil {
		return fmt.Errorf("dashboard.api.base_url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("dashboard.api.base_url must be an http(s) URL, got %q",
			c.Dashboard.API.BaseURL)
	}

	if _, err := c.Dashboard.API.TimeoutDuration(); err != nil {
		return fmt.Errorf("dashboard.api.timeout: %w", err)
	}

	return nil
}

// ValidateDashboard checks the settings required by the dashboard server.
func (c *Config) ValidateDashboard() error {
	if c.Dashboard.Server.Listen == "" {
		return fmt.Errorf("dashboard.server.listen is required")
	}

	if err := c.ValidateClient(); err != nil {
		return err
	}

	if _, err := c.Dashboard.Location(); err != nil {
		return fmt.Errorf("dashboard.timezone: %w", err)
	}

	return nil
}
