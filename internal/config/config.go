package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/opstools/snapreaper/internal/reaper"
)

// DefaultRetentionDays is the cutoff age applied when no other value is
// configured.
const DefaultRetentionDays = 30

// Config holds everything a single run needs. Credentials come from the
// environment (optionally seeded from a .env file); run settings come from an
// optional TOML file and may be overridden by CLI flags.
type Config struct {
	RetentionDays int
	Clusters      []string
	Tags          []string
	DryRun        bool
	Schedule      string

	MailServer           string
	MailFrom             string
	Recipients           []string
	InteractiveMailCreds bool

	VCenterUsername string
	VCenterPassword string
	VCenterInsecure bool

	SMTPUsername string
	SMTPPassword string
}

// Load reads credentials from environment variables only.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads credentials from an optional .env file and environment
// variables. The returned config carries defaults for run settings; callers
// merge the TOML file and flags on top, then call Validate.
func LoadWithFile(envFile string) (*Config, error) {
	// Attempt to load .env file if provided, but don't fail if it doesn't exist.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		RetentionDays:   DefaultRetentionDays,
		VCenterUsername: os.Getenv("VCENTER_USERNAME"),
		VCenterPassword: os.Getenv("VCENTER_PASSWORD"),
		VCenterInsecure: parseInsecure(os.Getenv("VCENTER_INSECURE")),
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		MailFrom:        os.Getenv("SMTP_FROM"),
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUsername
	}

	return cfg, nil
}

// Validate checks that the run is safe to start. Every violation wraps
// reaper.ErrInvalidConfiguration and aborts before a single cluster is
// contacted.
func (c *Config) Validate() error {
	if c.RetentionDays < 0 {
		return fmt.Errorf("%w: retention days must be >= 0, got %d", reaper.ErrInvalidConfiguration, c.RetentionDays)
	}
	if c.MailServer == "" {
		return fmt.Errorf("%w: mail server is required", reaper.ErrInvalidConfiguration)
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", reaper.ErrInvalidConfiguration)
	}
	if c.MailFrom == "" {
		return fmt.Errorf("%w: mail sender address is required (SMTP_FROM or SMTP_USERNAME)", reaper.ErrInvalidConfiguration)
	}
	if c.VCenterUsername == "" {
		return fmt.Errorf("%w: VCENTER_USERNAME is required", reaper.ErrInvalidConfiguration)
	}
	if c.VCenterPassword == "" {
		return fmt.Errorf("%w: VCENTER_PASSWORD is required", reaper.ErrInvalidConfiguration)
	}
	return nil
}

// parseInsecure converts a string to a boolean, defaulting to false.
func parseInsecure(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
