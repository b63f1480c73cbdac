package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvWorkflowSLADays       = "DENIALWATCH_WORKFLOW_SLA_DAYS"
	EnvWorkflowRetentionDays = "DENIALWATCH_WORKFLOW_RETENTION_DAYS"
)

// WorkflowConfig holds the regulatory response window and sheet retention
// settings.
type WorkflowConfig struct {
	// SLADays is the regulatory response window; deadlines are fixed at
	// notification time.
	SLADays int `toml:"sla_days"`
	// RetentionDays is the age past which terminal sheets are archived.
	RetentionDays int `toml:"retention_days"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkflowConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.SLADays != 0 {
		c.SLADays = overlay.SLADays
	}
	if overlay.RetentionDays != 0 {
		c.RetentionDays = overlay.RetentionDays
	}
}

func (c *WorkflowConfig) loadDefaults() {
	if c.SLADays == 0 {
		c.SLADays = 15
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 180
	}
}

func (c *WorkflowConfig) loadEnv() {
	if v := os.Getenv(EnvWorkflowSLADays); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SLADays = n
		}
	}
	if v := os.Getenv(EnvWorkflowRetentionDays); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RetentionDays = n
		}
	}
}

func (c *WorkflowConfig) validate() error {
	if c.SLADays < 1 {
		return fmt.Errorf("sla_days must be positive")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be positive")
	}
	return nil
}
