package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"handword/internal/backend"
	"handword/internal/config"
	"handword/internal/hook"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Backend is the subset of the client the checks call.
type Backend interface {
	BaseURL() string
	Probe(ctx context.Context) (any, error)
	Health(ctx context.Context) (backend.Health, error)
}

// Run executes doctor checks.
func Run(ctx context.Context, cfg *config.Config, client Backend) []Result {
	return []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkDirWritable("state dir", cfg.Paths.StateDir),
		checkReachable(ctx, client),
		checkHealth(ctx, client),
		checkHookExecutable(cfg.Hook.Command),
	}
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkDirWritable(label, dir string) Result {
	if dir == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Result{Name: label, Pass: true, Detail: filepath.Clean(dir)}
}

func checkReachable(ctx context.Context, client Backend) Result {
	label := "backend"
	info, err := client.Probe(ctx)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("%s: %v", client.BaseURL(), err)}
	}
	detail := client.BaseURL()
	if v := backend.Version(info); v != "" {
		detail += " (v" + v + ")"
	}
	return Result{Name: label, Pass: true, Detail: detail}
}

func checkHealth(ctx context.Context, client Backend) Result {
	label := "models"
	h, err := client.Health(ctx)
	switch {
	case errors.Is(err, backend.ErrNotReady):
		return Result{Name: label, Pass: false, Detail: "backend up but models not loaded"}
	case err != nil:
		return Result{Name: label, Pass: false, Detail: err.Error()}
	case !h.ModelsLoaded:
		return Result{Name: label, Pass: false, Detail: "models_loaded=false"}
	}
	return Result{Name: label, Pass: true, Detail: h.Status}
}

// checkHookExecutable resolves the first word of hook.command. An unset hook
// is fine: word hooks are optional.
func checkHookExecutable(command string) Result {
	label := "hook.command"
	argv, err := hook.ParseArgs(command)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if len(argv) == 0 {
		return Result{Name: label, Pass: true, Detail: "not set (hooks disabled)"}
	}
	path := os.ExpandEnv(argv[0])
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set hook.command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	// Else search PATH.
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}
