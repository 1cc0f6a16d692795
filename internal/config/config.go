// Package config defines service configuration structures and loading hooks.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the root of the show REST API.
	UpstreamBaseURL string `koanf:"upstream_base_url"`

	// UpstreamToken is sent as a bearer token when set.
	UpstreamToken string `koanf:"upstream_token"`

	// Per-method upstream timeouts: reads for GET, writes for PUT.
	UpstreamReadTimeoutMS  int `koanf:"upstream_read_timeout_ms"`
	UpstreamWriteTimeoutMS int `koanf:"upstream_write_timeout_ms"`

	// ShowDetailPath and StatusUpdatePath are URL templates with a {showID}
	// placeholder.
	ShowDetailPath   string `koanf:"show_detail_path"`
	StatusUpdatePath string `koanf:"status_update_path"`

	// TimeZone interprets upstream timestamps that carry no offset.
	TimeZone string `koanf:"time_zone"`

	// MaxViews bounds the number of open views.
	MaxViews int `koanf:"max_views"`

	// ViewIdleTimeoutMS closes views idle for longer; 0 disables expiry.
	ViewIdleTimeoutMS int `koanf:"view_idle_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		UpstreamBaseURL:        "http://localhost:9090",
		UpstreamReadTimeoutMS:  2_000,
		UpstreamWriteTimeoutMS: 5_000,
		ShowDetailPath:         "/api/v1/koi-show/{showID}",
		StatusUpdatePath:       "/api/v1/show-status/{showID}",
		TimeZone:               "UTC",
		MaxViews:               1_000,
		ViewIdleTimeoutMS:      30 * 60 * 1_000,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.UpstreamBaseURL, validation.Required, is.URL),
		validation.Field(&c.UpstreamReadTimeoutMS, validation.Required, validation.Min(1)),
		validation.Field(&c.UpstreamWriteTimeoutMS, validation.Required, validation.Min(1)),
		validation.Field(&c.ShowDetailPath, validation.Required),
		validation.Field(&c.StatusUpdatePath, validation.Required),
		validation.Field(&c.TimeZone, validation.Required, validation.By(loadableZone)),
		validation.Field(&c.MaxViews, validation.Min(0)),
		validation.Field(&c.ViewIdleTimeoutMS, validation.Min(0)),
	)
}

// ReadTimeout is the upstream timeout for reads.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.UpstreamReadTimeoutMS) * time.Millisecond
}

// WriteTimeout is the upstream timeout for writes.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.UpstreamWriteTimeoutMS) * time.Millisecond
}

// ViewIdleTimeout is how long an unused view stays open.
func (c *Config) ViewIdleTimeout() time.Duration {
	return time.Duration(c.ViewIdleTimeoutMS) * time.Millisecond
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

func loadableZone(value interface{}) error {
	name, _ := value.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return validation.NewError("validation_time_zone", "must be a known time zone")
	}
	return nil
}
