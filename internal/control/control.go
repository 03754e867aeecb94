package control

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"handword/internal/backend"
	"handword/internal/config"
	"handword/internal/logging"
	"handword/internal/run"
	"handword/internal/session"

	"github.com/sirupsen/logrus"
)

// Status is the report printed by `status`.
type Status struct {
	Backend      string `json:"backend"`
	Reachable    bool   `json:"reachable"`
	Version      string `json:"version,omitempty"`
	ModelsLoaded bool   `json:"models_loaded"`
	Word         string `json:"word"`
	Error        string `json:"error,omitempty"`
}

// env is what every command needs once the config is loaded.
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	client *backend.Client
}

func load(cfgPath string) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, err
	}
	client, err := run.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, client: client}, nil
}

// promptConfirmer asks on out and reads one line from in.
func promptConfirmer(in io.Reader, out io.Writer) session.Confirmer {
	return session.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}
