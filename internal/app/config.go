package app

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// BasePath is the sub-path the dashboard is deployed under, normalized to "/" or "/x/".
	BasePath string `envconfig:"BASE_PATH" default:"/"`
	// DataOrigin is the scheme://host the loader reads the aggregates from. Empty means
	// this server's own listen address.
	DataOrigin      string `envconfig:"DATA_ORIGIN"`
	DataDir         string `envconfig:"DATA_DIR"`
	TopDestinations int    `envconfig:"TOP_DESTINATIONS" default:"10"`

	// RedisAddr enables the refresh bus and the worker queue. Empty disables both.
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RefreshCron string `envconfig:"REFRESH_CRON" default:"0 6 * * *"`
	// WorkerMetricsAddr is where the worker exposes /metrics. Empty disables it.
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.BasePath = NormalizeBasePath(c.BasePath)
	if c.TopDestinations < 0 {
		return errors.New("TOP_DESTINATIONS must not be negative")
	}
	if c.DataOrigin != "" {
		u, err := url.Parse(c.DataOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("DATA_ORIGIN must be an absolute origin, got %q", c.DataOrigin)
		}
		c.DataOrigin = u.Scheme + "://" + u.Host
	}
	return nil
}

// NormalizeBasePath returns p with exactly one leading and one trailing slash.
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

// LoaderOrigin returns the origin the dataset loader resolves against. Without an
// explicit DATA_ORIGIN the server reads its own files over loopback.
func (c *Config) LoaderOrigin() string {
	if c.DataOrigin != "" {
		return c.DataOrigin
	}
	host, port, err := net.SplitHostPort(c.AppAddr)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
