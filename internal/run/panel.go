package run

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"handword/internal/backend"
	"handword/internal/config"
	"handword/internal/hook"
	"handword/internal/panel"
	"handword/internal/session"

	"github.com/sirupsen/logrus"
)

// NewClient builds a backend client from cfg.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*backend.Client, error) {
	return backend.New(cfg.Backend.URL,
		backend.WithTimeout(cfg.RequestTimeout()),
		backend.WithRetries(cfg.Backend.Retries, cfg.RetryDelay()),
		backend.WithLogger(logger),
	)
}

// Panel runs the interactive control panel until the user quits or a signal
// arrives. An active session is torn down on the way out.
func Panel(cfg *config.Config, logger *logrus.Logger) error {
	if err := config.MustStatePaths(cfg); err != nil {
		return err
	}
	rl, err := panel.NewReadline(filepath.Join(cfg.Paths.StateDir, "history"))
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			logger.Infof("received signal %s, shutting down", s)
			cancel()
			_ = rl.Close()
		case <-ctx.Done():
		}
	}()

	return runPanel(ctx, cfg, logger, rl, rl.Stdout(), os.Getenv("NO_COLOR") == "")
}

func runPanel(ctx context.Context, cfg *config.Config, logger *logrus.Logger, r panel.LineReader, out io.Writer, color bool) error {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return err
	}
	runner, err := hook.NewRunner(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hooks := hook.NewDispatcher(runner, logger, cfg.Hook.QueueSize)
	hooks.Start(ctx)

	term := panel.NewTerminal(out, color)
	shell := panel.NewShell(r, out, logger)
	var confirmer session.Confirmer = session.AutoConfirm
	if cfg.UI.ConfirmClear {
		confirmer = shell
	}
	ctrl := session.New(client, term,
		session.WithInterval(cfg.PollInterval()),
		session.WithLogger(logger),
		session.WithConfirmer(confirmer),
		session.WithPlaceholder(cfg.Placeholder()),
		session.WithWordListener(hooks.WordChanged),
	)

	if cfg.Metrics.Enabled {
		go metricsServe(ctx.Done(), cfg.Metrics.Addr, ctrl, hooks, logger)
	}

	// The check only sets the status line; the panel stays usable offline.
	_ = ctrl.Init(ctx)

	runErr := shell.Run(ctx, ctrl)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	select {
	case <-ctrl.Teardown():
	case <-time.After(cfg.TeardownGrace()):
		logger.Warn("stop signal still pending at exit")
	}
	cancel()
	hooks.Wait()
	return runErr
}
