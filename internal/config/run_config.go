package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// RunConfig holds the operator-editable run settings. These are non-sensitive
// and live in a TOML file so schedules and cluster lists can change without
// redeployment.
type RunConfig struct {
	RetentionDays *int     `toml:"retention_days"` // Optional: defaults to 30
	Clusters      []string `toml:"clusters"`
	Tags          []string `toml:"tags"`
	MailServer    string   `toml:"mail_server"`
	MailFrom      string   `toml:"mail_from"`
	Recipients    []string `toml:"recipients"`
	Schedule      string   `toml:"schedule"`
}

// LoadRunConfig loads run settings from a TOML file.
func LoadRunConfig(path string) (*RunConfig, error) {
	var rc RunConfig
	if _, err := toml.DecodeFile(path, &rc); err != nil {
		return nil, fmt.Errorf("failed to load run config: %w", err)
	}
	return &rc, nil
}

// Merge applies the run settings on top of the config. Only fields set in
// the file override; CLI flags are applied by the caller afterwards and win.
func (c *Config) Merge(rc *RunConfig) {
	if rc == nil {
		return
	}
	if rc.RetentionDays != nil {
		c.RetentionDays = *rc.RetentionDays
	}
	if len(rc.Clusters) > 0 {
		c.Clusters = rc.Clusters
	}
	if len(rc.Tags) > 0 {
		c.Tags = rc.Tags
	}
	if rc.MailServer != "" {
		c.MailServer = rc.MailServer
	}
	if rc.MailFrom != "" {
		c.MailFrom = rc.MailFrom
	}
	if len(rc.Recipients) > 0 {
		c.Recipients = rc.Recipients
	}
	if rc.Schedule != "" {
		c.Schedule = rc.Schedule
	}
}
