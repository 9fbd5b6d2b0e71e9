package config

import (
	"time"

	"github.com/ejoffe/rake"
)

// Config object to hold spr-commit configuration
type Config struct {
	User     *UserConfig
	Internal *InternalConfig
}

// UserConfig is read from ~/.spr-commit.yml and then overridden by the
// repository's .spr-commit.yml.
type UserConfig struct {
	// Editor is the host editor command, empty means $VISUAL, $EDITOR or vi.
	Editor string `default:"" yaml:"editor"`

	LogGitCommands bool `default:"false" yaml:"logGitCommands"`
	VerboseDiff    bool `default:"false" yaml:"verboseDiff"`
	Signoff        bool `default:"false" yaml:"signoff"`

	HandshakeTimeoutMs int `default:"5000" yaml:"handshakeTimeoutMs"`
	ReapTimeoutMs      int `default:"2000" yaml:"reapTimeoutMs"`
	PollIntervalMs     int `default:"100" yaml:"pollIntervalMs"`

	// TempDir holds sentinel files, empty means os.TempDir().
	TempDir string `default:"" yaml:"tempDir"`
}

// InternalConfig is state spr-commit keeps between runs.
type InternalConfig struct {
	RunCount int `default:"0" yaml:"runCount"`
}

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultReapTimeout      = 2 * time.Second
	defaultPollInterval     = 100 * time.Millisecond
)

// EmptyConfig returns a config with zero values.
func EmptyConfig() *Config {
	return &Config{
		User:     &UserConfig{},
		Internal: &InternalConfig{},
	}
}

// DefaultConfig returns a config populated from the default tags.
func DefaultConfig() *Config {
	cfg := EmptyConfig()
	rake.LoadSources(cfg.User,
		rake.DefaultSource(),
	)
	rake.LoadSources(cfg.Internal,
		rake.DefaultSource(),
	)
	return cfg
}

// HandshakeTimeout bounds the wait for the external command to announce
// its artifact.
func (c *Config) HandshakeTimeout() time.Duration {
	return millis(c.User.HandshakeTimeoutMs, defaultHandshakeTimeout)
}

// ReapTimeout bounds the wait for the external command to exit once
// released.
func (c *Config) ReapTimeout() time.Duration {
	return millis(c.User.ReapTimeoutMs, defaultReapTimeout)
}

// PollInterval is the granularity of every wait.
func (c *Config) PollInterval() time.Duration {
	return millis(c.User.PollIntervalMs, defaultPollInterval)
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
