package main

import (
	"fmt"
	"os"

	"handword/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	panel := control.NewPanelCmd(&cfgPath)

	root := &cobra.Command{
		Use:   "handword",
		Short: "handword: control panel for a hand-gesture word recognizer",
		Long: `handword drives a remote sign-language recognition backend: start and stop its webcam,
watch the word being spelled, and edit it (space, delete, clear).

Run without a command for the interactive panel.`,
		Example: `  handword
  handword mock-backend --addr 127.0.0.1:8000
  handword status --json
  handword watch --count 5
  handword clear --yes
  handword snapshot -o frame.jpg`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
		Args:                  cobra.NoArgs,
		RunE:                  panel.RunE,
	}

	root.Version = version
	root.SetVersionTemplate("handword v{{.Version}}\n")

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (TOML). Defaults to ~/.config/handword/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(panel)
	root.AddCommand(control.NewStartCmd(&cfgPath))
	root.AddCommand(control.NewStopCmd(&cfgPath))
	root.AddCommand(control.NewWordCmd(&cfgPath))
	root.AddCommand(control.NewSpaceCmd(&cfgPath))
	root.AddCommand(control.NewDeleteCmd(&cfgPath))
	root.AddCommand(control.NewClearCmd(&cfgPath))
	root.AddCommand(control.NewWatchCmd(&cfgPath))
	root.AddCommand(control.NewStatusCmd(&cfgPath))
	root.AddCommand(control.NewSnapshotCmd(&cfgPath))
	root.AddCommand(control.NewDoctorCmd(&cfgPath))
	root.AddCommand(control.NewTailLogCmd(&cfgPath))
	root.AddCommand(control.NewConfigCmd(&cfgPath))
	root.AddCommand(control.NewMockBackendCmd(&cfgPath))

	applyColorHelp(root)
	return root
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		if cmd != root {
			write("%s%s%s\n\n%s", bold, cmd.Short, reset, cmd.UsageString())
			return
		}

		write("%shandword%s: gesture word panel %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sStarts the backend webcam, polls the spelled word, and runs your word hook.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  handword [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  panel (default)             interactive panel: toggle, space, delete, clear")
		writeln("  start|stop                  backend webcam on/off")
		writeln("  word|space|delete|clear     one-shot word commands (clear --yes skips the prompt)")
		writeln("  watch [--count N]           print word changes")
		writeln("  status [--json]             reachability, models, current word")
		writeln("  snapshot [-o file]          save one frame of the video feed")
		writeln("  doctor                      check config/backend/hook")
		writeln("  config show|set-backend     inspect or edit the config file")
		writeln("  mock-backend [--addr]       local backend emulator")
		writeln("  tail-log                    show last log lines")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/handword/config.toml)")
		writeln("  Env: HANDWORD_BACKEND_URL=http://host:8000, HANDWORD_POLL_INTERVAL_MS=500,")
		writeln("       HANDWORD_METRICS_ADDR=host:port, HANDWORD_LOG_LEVEL=debug,")
		writeln("       HANDWORD_LOG_FORMAT=json")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  handword mock-backend &")
		writeln("  handword")
		writeln("  handword watch --count 5")
		writeln("  handword clear --yes")
		writeln("  HANDWORD_BACKEND_URL=http://gpu-box:8000 handword status --json")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
