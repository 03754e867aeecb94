package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultBackendURL    = "http://127.0.0.1:8000"
	DefaultEmpty         = "[empty]"
	defaultPollMS        = 500
	defaultTimeoutSec    = 5.0
	defaultRetries       = 0
	defaultRetryDelayMS  = 200
	defaultGraceMS       = 1000
	defaultHookQueue     = 8
	defaultStateDirLinux = ".local/state/handword"
	defaultConfigDir     = ".config/handword"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Backend struct {
		URL          string  `toml:"url"`
		TimeoutSec   float64 `toml:"timeout_sec"`
		Retries      int     `toml:"retries"` // GET only
		RetryDelayMS int     `toml:"retry_delay_ms"`
	} `toml:"backend"`

	Poll struct {
		IntervalMS int `toml:"interval_ms"`
	} `toml:"poll"`

	UI struct {
		EmptyPlaceholder string `toml:"empty_placeholder"`
		ConfirmClear     bool   `toml:"confirm_clear"`
		TeardownGraceMS  int    `toml:"teardown_grace_ms"`
	} `toml:"ui"`

	Hook struct {
		Command     string            `toml:"command"` // split with shlex, word appended
		CooldownSec float64           `toml:"cooldown_sec"`
		TimeoutSec  float64           `toml:"timeout_sec"`
		QueueSize   int               `toml:"queue_size"`
		Env         map[string]string `toml:"env"`
	} `toml:"hook"`

	Logging struct {
		Level      string `toml:"level"`  // debug, info, warn, error
		Format     string `toml:"format"` // text, json
		Stdout     bool   `toml:"stdout"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
		Compress   bool   `toml:"compress"`
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "handword")
	}

	cfg := &Config{}

	cfg.Backend.URL = DefaultBackendURL
	cfg.Backend.TimeoutSec = defaultTimeoutSec
	cfg.Backend.Retries = defaultRetries
	cfg.Backend.RetryDelayMS = defaultRetryDelayMS

	cfg.Poll.IntervalMS = defaultPollMS

	cfg.UI.EmptyPlaceholder = DefaultEmpty
	cfg.UI.ConfirmClear = true
	cfg.UI.TeardownGraceMS = defaultGraceMS

	cfg.Hook.CooldownSec = 0
	cfg.Hook.TimeoutSec = 5
	cfg.Hook.QueueSize = defaultHookQueue
	cfg.Hook.Env = map[string]string{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 14

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "handword.log")

	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = "127.0.0.1:9318"

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, cfg.Validate()
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.url: missing host")
	}
	if c.Poll.IntervalMS <= 0 {
		return fmt.Errorf("poll.interval_ms must be positive, got %d", c.Poll.IntervalMS)
	}
	if c.Backend.Retries < 0 {
		return fmt.Errorf("backend.retries must not be negative")
	}
	return nil
}

// PollInterval is the word polling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMS) * time.Millisecond
}

// RequestTimeout bounds a single backend request; zero means no timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(float64(time.Second) * c.Backend.TimeoutSec)
}

// RetryDelay is the pause between GET retries.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Backend.RetryDelayMS) * time.Millisecond
}

// TeardownGrace is how long the process waits for the unload stop signal.
func (c *Config) TeardownGrace() time.Duration {
	return time.Duration(c.UI.TeardownGraceMS) * time.Millisecond
}

// Placeholder returns the literal shown for an empty word.
func (c *Config) Placeholder() string {
	if c.UI.EmptyPlaceholder == "" {
		return DefaultEmpty
	}
	return c.UI.EmptyPlaceholder
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HANDWORD_BACKEND_URL"); v != "" {
		cfg.Backend.URL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("HANDWORD_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Poll.IntervalMS = ms
		}
	}
	if v := os.Getenv("HANDWORD_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("HANDWORD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HANDWORD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
