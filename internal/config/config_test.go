package config

import (
	"os"
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation

	t.Setenv("HANDWORD_BACKEND_URL", "https://gestures.example.com/")
	t.Setenv("HANDWORD_POLL_INTERVAL_MS", "250")
	t.Setenv("HANDWORD_METRICS_ADDR", "1.2.3.4:9999")
	t.Setenv("HANDWORD_LOG_LEVEL", "debug")
	t.Setenv("HANDWORD_LOG_FORMAT", "json")

	applyEnvOverrides(cfg)

	if cfg.Backend.URL != "https://gestures.example.com" {
		t.Fatalf("backend url override failed: %q", cfg.Backend.URL)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("poll interval override failed: %v", cfg.PollInterval())
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "1.2.3.4:9999" {
		t.Fatalf("metrics override failed: %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
}

func TestBadPollIntervalEnvIgnored(t *testing.T) {
	cfg, _ := Default()
	t.Setenv("HANDWORD_POLL_INTERVAL_MS", "soon")
	applyEnvOverrides(cfg)
	if cfg.Poll.IntervalMS != defaultPollMS {
		t.Fatalf("expected default interval, got %d", cfg.Poll.IntervalMS)
	}
}

func TestDefaultsMatchPanelBehaviour(t *testing.T) {
	cfg, _ := Default()
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Fatalf("poll interval = %v", cfg.PollInterval())
	}
	if cfg.Placeholder() != "[empty]" {
		t.Fatalf("placeholder = %q", cfg.Placeholder())
	}
	cfg.UI.EmptyPlaceholder = ""
	if cfg.Placeholder() != "[empty]" {
		t.Fatalf("blank placeholder should fall back, got %q", cfg.Placeholder())
	}
	if !cfg.UI.ConfirmClear {
		t.Fatalf("clear confirmation should default on")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"https", func(c *Config) { c.Backend.URL = "https://ai.example.com" }, true},
		{"ws scheme", func(c *Config) { c.Backend.URL = "ws://localhost:8000" }, false},
		{"no host", func(c *Config) { c.Backend.URL = "http://" }, false},
		{"zero interval", func(c *Config) { c.Poll.IntervalMS = 0 }, false},
		{"negative retries", func(c *Config) { c.Backend.Retries = -1 }, false},
	}
	for _, c := range cases {
		cfg, _ := Default()
		c.mutate(cfg)
		err := cfg.Validate()
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = path
	cfg.Backend.URL = "http://10.0.0.7:8000"
	cfg.Hook.Command = "/bin/echo word:"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Backend.URL != "http://10.0.0.7:8000" {
		t.Fatalf("expected backend url to persist, got %q", loaded.Backend.URL)
	}
	if loaded.Hook.Command != "/bin/echo word:" {
		t.Fatalf("expected hook command to persist")
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path not recorded: %q", loaded.Paths.ConfigPath)
	}

	_ = os.Remove(path)
}

func TestLoadWritesTemplateWhenMissing(t *testing.T) {
	path := t.TempDir() + "/nested/config.toml"
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Fatalf("unexpected url %q", cfg.Backend.URL)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}
}
