package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"handword/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// ErrNoCommand is returned when no hook.command is configured.
var ErrNoCommand = errors.New("no hook.command configured")

// Job represents a hook invocation request.
type Job struct {
	Word      string
	Timestamp time.Time
}

// Runner executes the word hook with cooldown handling.
type Runner struct {
	cfg     *config.Config
	logger  *logrus.Logger
	argv    []string
	lastRun time.Time
	mu      sync.Mutex
}

// NewRunner parses hook.command once; an empty command yields a disabled runner.
func NewRunner(cfg *config.Config, logger *logrus.Logger) (*Runner, error) {
	argv, err := ParseArgs(cfg.Hook.Command)
	if err != nil {
		return nil, fmt.Errorf("parse hook.command: %w", err)
	}
	return &Runner{cfg: cfg, logger: logger, argv: argv}, nil
}

// Enabled reports whether a command is configured.
func (r *Runner) Enabled() bool { return len(r.argv) > 0 }

// ShouldRun returns whether cooldown allows a new hook.
func (r *Runner) ShouldRun() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.Hook.CooldownSec <= 0 {
		return true
	}
	return time.Since(r.lastRun).Seconds() >= r.cfg.Hook.CooldownSec
}

// Run executes the configured command with the word as its last argument.
func (r *Runner) Run(ctx context.Context, job Job) error {
	if !r.Enabled() {
		return ErrNoCommand
	}
	r.mu.Lock()
	r.lastRun = time.Now()
	r.mu.Unlock()

	args := append(append([]string{}, r.argv[1:]...), job.Word)

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Hook.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*r.cfg.Hook.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, r.argv[0], args...)
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Hook.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, fmt.Sprintf("HANDWORD_WORD=%s", job.Word))
	cmd.Env = append(cmd.Env, fmt.Sprintf("HANDWORD_TIMESTAMP=%s", job.Timestamp.Format(time.RFC3339)))

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.Infof("hook output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}

// ParseArgs splits a shell-style command string.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}
