package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"handword/internal/config"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesJSONToRotatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "logs", "handword.log")
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %v", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.WithField("endpoint", "/get_word").Warn("poll failed")

	data, err := os.ReadFile(cfg.Paths.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"endpoint":"/get_word"`) {
		t.Fatalf("expected json field in %s", out)
	}
}

func TestConfigureIgnoresUnknownLevel(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "handword.log")
	cfg.Logging.Level = "chatty"

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected default info level, got %v", logger.GetLevel())
	}
}

func TestRotatorFollowsLoggingSection(t *testing.T) {
	cfg, _ := config.Default()
	cfg.Paths.LogPath = filepath.Join(t.TempDir(), "handword.log")

	r := newRotator(cfg)
	if r.MaxSize != 10 || r.MaxBackups != 3 || r.MaxAge != 14 || r.Compress {
		t.Fatalf("unexpected defaults %+v", r)
	}

	cfg.Logging.MaxSizeMB = 1
	cfg.Logging.MaxBackups = 7
	cfg.Logging.MaxAgeDays = 2
	cfg.Logging.Compress = true
	r = newRotator(cfg)
	if r.Filename != cfg.Paths.LogPath || r.MaxSize != 1 || r.MaxBackups != 7 || r.MaxAge != 2 || !r.Compress {
		t.Fatalf("rotator ignored config: %+v", r)
	}
}
