package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"handword/internal/backend"
	"handword/internal/doctor"
	"handword/internal/mockbackend"
	"handword/internal/run"

	"github.com/spf13/cobra"
)

// NewPanelCmd runs the interactive panel.
func NewPanelCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Interactive control panel (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			return run.Panel(e.cfg, e.logger)
		},
	}
}

// NewStatusCmd reports backend reachability, model health and the current word.
func NewStatusCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show backend status and current word",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			status := collectStatus(cmd.Context(), e.client, e.cfg.Placeholder())
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
			}
			printStatus(cmd.OutOrStdout(), status)
			if !status.Reachable {
				return fmt.Errorf("backend unreachable")
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func collectStatus(ctx context.Context, client *backend.Client, placeholder string) Status {
	status := Status{Backend: client.BaseURL()}
	info, err := client.Probe(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Reachable = true
	status.Version = backend.Version(info)
	if h, err := client.Health(ctx); err == nil {
		status.ModelsLoaded = h.ModelsLoaded
	}
	word, err := client.GetWord(ctx)
	if err != nil {
		status.Error = err.Error()
	}
	if word == "" {
		word = placeholder
	}
	status.Word = word
	return status
}

func printStatus(out io.Writer, s Status) {
	fmt.Fprintf(out, "backend:   %s\n", s.Backend)
	fmt.Fprintf(out, "reachable: %v\n", s.Reachable)
	if s.Version != "" {
		fmt.Fprintf(out, "version:   %s\n", s.Version)
	}
	if s.Reachable {
		fmt.Fprintf(out, "models:    %v\n", s.ModelsLoaded)
		fmt.Fprintf(out, "word:      %s\n", s.Word)
	}
	if s.Error != "" {
		fmt.Fprintf(out, "error:     %s\n", s.Error)
	}
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tail-log",
		Short: "Show last 50 log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			return tailFile(cmd.OutOrStdout(), e.cfg.Paths.LogPath, 50)
		},
	}
}

func tailFile(out io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Fprintln(out, l)
		}
	}
	return nil
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, backend and hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cmd.Context(), e.cfg, e.client)
			exitCode := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					exitCode = 1
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewMockBackendCmd serves the in-process backend emulator.
func NewMockBackendCmd(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Run a local backend emulator for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			mock := mockbackend.New(mockbackend.WithLogger(e.logger))
			fmt.Fprintf(cmd.OutOrStdout(), "mock backend on http://%s (Ctrl-C to stop)\n", addr)
			return mock.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	return cmd
}
