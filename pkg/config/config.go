// Package config loads control-aws settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/controlant/control-aws/pkg/session"
)

// Output formats understood by the CLI.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Config holds all configuration for control-aws.
type Config struct {
	// Region is the AWS region. Required when RoleARN is set.
	Region string `env:"AWS_REGION"`

	// Profile selects the shared config profile for base credentials.
	Profile string `env:"AWS_PROFILE"`

	// RoleARN is the delegated role to assume before discovery.
	RoleARN string `env:"CONTROL_AWS_ROLE_ARN"`

	// SessionName is the role session name.
	SessionName string `env:"CONTROL_AWS_SESSION_NAME" envDefault:"control-aws"`

	// ExternalID is passed to AssumeRole when set.
	ExternalID string `env:"CONTROL_AWS_EXTERNAL_ID"`

	// Concurrency caps concurrent tag reads; 0 means unbounded.
	Concurrency int `env:"CONTROL_AWS_CONCURRENCY" envDefault:"0"`

	// Timeout bounds a whole discovery run.
	Timeout time.Duration `env:"CONTROL_AWS_TIMEOUT" envDefault:"5m"`

	// LogLevel is a logrus level name.
	LogLevel string `env:"CONTROL_AWS_LOG_LEVEL" envDefault:"info"`

	// Output is one of table, json or yaml.
	Output string `env:"CONTROL_AWS_OUTPUT" envDefault:"table"`
}

// Parse reads the environment into a Config without validating it, so
// callers can apply overrides before calling Validate.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values and combinations.
func (c Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be 'table', 'json' or 'yaml', got: %s", c.Output)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.RoleARN != "" {
		if err := c.Session().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Session projects the role settings into a session.Config.
func (c Config) Session() session.Config {
	return session.Config{
		RoleARN:     c.RoleARN,
		Region:      c.Region,
		SessionName: c.SessionName,
		ExternalID:  c.ExternalID,
		Profile:     c.Profile,
	}
}
