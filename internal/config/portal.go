package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvPortalBaseURL      = "DENIALWATCH_PORTAL_BASE_URL"
	EnvPortalToken        = "DENIALWATCH_PORTAL_TOKEN"
	EnvPortalTimeout      = "DENIALWATCH_PORTAL_TIMEOUT"
	EnvPortalPayers       = "DENIALWATCH_PORTAL_PAYERS"
	EnvPortalCycleTimeout = "DENIALWATCH_PORTAL_CYCLE_TIMEOUT"
	EnvPortalWindowDays   = "DENIALWATCH_PORTAL_WINDOW_DAYS"
)

// PortalConfig holds portal gateway and cycle orchestration parameters.
type PortalConfig struct {
	BaseURL      string   `toml:"base_url"`
	Token        string   `toml:"token"`
	Timeout      string   `toml:"timeout"`
	Payers       []string `toml:"payers"`
	CycleTimeout string   `toml:"cycle_timeout"`
	WindowDays   int      `toml:"window_days"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *PortalConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// CycleTimeoutDuration returns CycleTimeout as a time.Duration.
func (c *PortalConfig) CycleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CycleTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PortalConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PortalConfig) Merge(overlay *PortalConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if len(overlay.Payers) > 0 {
		c.Payers = overlay.Payers
	}
	if overlay.CycleTimeout != "" {
		c.CycleTimeout = overlay.CycleTimeout
	}
	if overlay.WindowDays != 0 {
		c.WindowDays = overlay.WindowDays
	}
}

func (c *PortalConfig) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.CycleTimeout == "" {
		c.CycleTimeout = "10m"
	}
	if c.WindowDays == 0 {
		c.WindowDays = 7
	}
}

func (c *PortalConfig) loadEnv() {
	if v := os.Getenv(EnvPortalBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvPortalToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvPortalTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvPortalPayers); v != "" {
		c.Payers = splitList(v)
	}
	if v := os.Getenv(EnvPortalCycleTimeout); v != "" {
		c.CycleTimeout = v
	}
	if v := os.Getenv(EnvPortalWindowDays); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.WindowDays = n
		}
	}
}

func (c *PortalConfig) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.CycleTimeout); err != nil {
		return fmt.Errorf("invalid cycle_timeout: %w", err)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("window_days must be positive")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
