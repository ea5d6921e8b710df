// Package config holds the fetcher settings: portal endpoint, request options,
// table extraction marker and search geometry. Values come from built-in
// defaults, an optional YAML file and SMFETCH_* environment variables, in that
// order of precedence (environment wins).
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/smfetch/internal/geo"
	"github.com/pfrederiksen/smfetch/internal/logger"
)

const (
	DefaultPortalURL   = "http://kyhdata.deprem.gov.tr/2K/kyhdata_v4.php"
	DefaultModule      = "earthquake"
	DefaultTask        = "search"
	DefaultUserAgent   = "smfetch/1.0 (github.com/pfrederiksen/smfetch)"
	DefaultTimeout     = 30 * time.Second
	DefaultTableMarker = "rowtype01_1"
	DefaultDateSlack   = 24 * time.Hour
	DefaultLogLevel    = "info"
)

// DefaultRegion is the coverage of the Turkish national strong-motion network.
var DefaultRegion = geo.Box{MinLat: 35.81, MaxLat: 42.10, MinLon: 25.6, MaxLon: 44.82}

// Config holds all fetcher settings.
type Config struct {
	PortalURL string `yaml:"portal_url"`
	Module    string `yaml:"module"`
	Task      string `yaml:"task"`
	// SearchURL overrides the endpoint derived from PortalURL, Module and Task.
	SearchURL string `yaml:"search_url"`

	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`

	TableMarker string        `yaml:"table_marker"`
	KmPerDegree float64       `yaml:"km_per_degree"`
	DateSlack   time.Duration `yaml:"date_slack"`
	Region      geo.Box       `yaml:"region"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PortalURL:   DefaultPortalURL,
		Module:      DefaultModule,
		Task:        DefaultTask,
		UserAgent:   DefaultUserAgent,
		Timeout:     DefaultTimeout,
		TableMarker: DefaultTableMarker,
		KmPerDegree: geo.DefaultKmPerDegree,
		DateSlack:   DefaultDateSlack,
		Region:      DefaultRegion,
		LogLevel:    DefaultLogLevel,
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SMFETCH_PORTAL_URL"); v != "" {
		c.PortalURL = v
	}
	if v := os.Getenv("SMFETCH_SEARCH_URL"); v != "" {
		c.SearchURL = v
	}
	if v := os.Getenv("SMFETCH_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("SMFETCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SMFETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SMFETCH_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.SearchURL == "" && c.PortalURL == "" {
		return errors.New("portal_url or search_url is required")
	}
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.TableMarker == "" {
		return errors.New("table_marker is required")
	}
	if c.KmPerDegree <= 0 {
		return errors.New("km_per_degree must be positive")
	}
	if c.DateSlack <= 0 {
		return errors.New("date_slack must be positive")
	}
	if !c.Region.Valid() {
		return errors.New("region bounds are inverted")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Endpoint returns the search URL. Unless SearchURL is set, it is PortalURL
// with a dst parameter carrying the URL-safe base64 encoding of
// "MODULE_NAME=<module>&MODULE_TASK=<task>".
func (c *Config) Endpoint() (string, error) {
	if c.SearchURL != "" {
		if _, err := url.Parse(c.SearchURL); err != nil {
			return "", fmt.Errorf("invalid search_url: %w", err)
		}
		return c.SearchURL, nil
	}
	return PortalURL(c.PortalURL, c.Module, c.Task)
}

// PortalURL builds a portal address for a module task.
func PortalURL(base, module, task string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid portal_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid portal_url: %q is not absolute", base)
	}
	dst := fmt.Sprintf("MODULE_NAME=%s&MODULE_TASK=%s", module, task)
	q := u.Query()
	q.Set("dst", base64.URLEncoding.EncodeToString([]byte(dst)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
