package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/finchhealth/denialwatch/internal/notify"
)

const (
	EnvNotifyMaxAttempts   = "DENIALWATCH_NOTIFY_MAX_ATTEMPTS"
	EnvNotifyBackoffBase   = "DENIALWATCH_NOTIFY_BACKOFF_BASE"
	EnvNotifyBackoffMax    = "DENIALWATCH_NOTIFY_BACKOFF_MAX"
	EnvNotifyRatePerSecond = "DENIALWATCH_NOTIFY_RATE_PER_SECOND"
)

// RouteConfig is one configured delivery target for a branch.
type RouteConfig struct {
	Channel string `toml:"channel"`
	Address string `toml:"address"`
}

// NotifyConfig holds delivery retry, pacing, and branch routing settings.
type NotifyConfig struct {
	MaxAttempts   int                      `toml:"max_attempts"`
	BackoffBase   string                   `toml:"backoff_base"`
	BackoffMax    string                   `toml:"backoff_max"`
	RatePerSecond float64                  `toml:"rate_per_second"`
	DefaultRoutes []RouteConfig            `toml:"default_routes"`
	Branches      map[string][]RouteConfig `toml:"branches"`
}

// Options converts the config into router options.
func (c *NotifyConfig) Options() notify.Options {
	base, _ := time.ParseDuration(c.BackoffBase)
	max, _ := time.ParseDuration(c.BackoffMax)

	routes := make(map[string][]notify.Route, len(c.Branches))
	for branch, targets := range c.Branches {
		routes[branch] = convertRoutes(targets)
	}

	return notify.Options{
		MaxAttempts:   c.MaxAttempts,
		BackoffBase:   base,
		BackoffMax:    max,
		RatePerSecond: c.RatePerSecond,
		Routes:        routes,
		DefaultRoutes: convertRoutes(c.DefaultRoutes),
	}
}

func convertRoutes(targets []RouteConfig) []notify.Route {
	out := make([]notify.Route, len(targets))
	for i, t := range targets {
		out[i] = notify.Route{Channel: notify.Channel(t.Channel), Address: t.Address}
	}
	return out
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *NotifyConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *NotifyConfig) Merge(overlay *NotifyConfig) {
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BackoffBase != "" {
		c.BackoffBase = overlay.BackoffBase
	}
	if overlay.BackoffMax != "" {
		c.BackoffMax = overlay.BackoffMax
	}
	if overlay.RatePerSecond != 0 {
		c.RatePerSecond = overlay.RatePerSecond
	}
	if len(overlay.DefaultRoutes) > 0 {
		c.DefaultRoutes = overlay.DefaultRoutes
	}
	if len(overlay.Branches) > 0 {
		c.Branches = overlay.Branches
	}
}

func (c *NotifyConfig) loadDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase == "" {
		c.BackoffBase = "1s"
	}
	if c.BackoffMax == "" {
		c.BackoffMax = "30s"
	}
	if c.RatePerSecond == 0 {
		c.RatePerSecond = 5
	}
	if len(c.DefaultRoutes) == 0 {
		c.DefaultRoutes = []RouteConfig{{Channel: string(notify.ChannelInternal), Address: "operations"}}
	}
}

func (c *NotifyConfig) loadEnv() {
	if v := os.Getenv(EnvNotifyMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvNotifyBackoffBase); v != "" {
		c.BackoffBase = v
	}
	if v := os.Getenv(EnvNotifyBackoffMax); v != "" {
		c.BackoffMax = v
	}
	if v := os.Getenv(EnvNotifyRatePerSecond); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
}

func (c *NotifyConfig) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if _, err := time.ParseDuration(c.BackoffBase); err != nil {
		return fmt.Errorf("invalid backoff_base: %w", err)
	}
	if _, err := time.ParseDuration(c.BackoffMax); err != nil {
		return fmt.Errorf("invalid backoff_max: %w", err)
	}
	for branch, targets := range c.Branches {
		for _, t := range targets {
			if !notify.ValidChannel(notify.Channel(t.Channel)) {
				return fmt.Errorf("branch %s: unknown channel %q", branch, t.Channel)
			}
		}
	}
	return nil
}
