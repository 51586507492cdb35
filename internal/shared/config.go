package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Executor ExecutorConfig `toml:"executor"`
	Sync     SyncConfig     `toml:"sync"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// ExecutorConfig contains connection settings for the remote sync job executor.
type ExecutorConfig struct {
	BaseURL        string   `toml:"base_url"`
	APIToken       string   `toml:"api_token"`
	RequestTimeout Duration `toml:"request_timeout"`
	Retries        int      `toml:"retries"`
}

// SyncConfig contains orchestration tunables: poll cadence, timeout ceiling and trigger thresholds.
type SyncConfig struct {
	PollInterval      Duration `toml:"poll_interval"`
	MaxAttempts       int      `toml:"max_attempts"`
	Threshold         Duration `toml:"threshold"`
	PendingThreshold  int      `toml:"pending_threshold"`
	ScheduledInterval Duration `toml:"scheduled_interval"`
	PreferBackground  bool     `toml:"prefer_background"`
	RequestRate       float64  `toml:"request_rate"` // decoupled requests per minute
	RequestBurst      int      `toml:"request_burst"`
	CheckInterval     Duration `toml:"check_interval"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP status server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Duration wraps [time.Duration] so TOML values can be written as "1s", "30m".
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Validate reports the first setting that cannot drive the orchestrator.
func (c *Config) Validate() error {
	switch {
	case c.Executor.BaseURL == "":
		return fmt.Errorf("%w: executor.base_url is required", ErrInvalidConfig)
	case c.Sync.PollInterval.Duration <= 0:
		return fmt.Errorf("%w: sync.poll_interval must be positive", ErrInvalidConfig)
	case c.Sync.MaxAttempts <= 0:
		return fmt.Errorf("%w: sync.max_attempts must be positive", ErrInvalidConfig)
	case c.Sync.Threshold.Duration < 0:
		return fmt.Errorf("%w: sync.threshold must not be negative", ErrInvalidConfig)
	case c.Sync.PendingThreshold < 0:
		return fmt.Errorf("%w: sync.pending_threshold must not be negative", ErrInvalidConfig)
	case c.Executor.Retries < 0:
		return fmt.Errorf("%w: executor.retries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
