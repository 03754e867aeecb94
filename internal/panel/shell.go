package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"handword/internal/session"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
)

// DefaultPrompt is shown while waiting for a command.
const DefaultPrompt = "handword> "

// LineReader is the part of *readline.Instance the shell uses.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Controller is what the shell drives.
type Controller interface {
	StartOrStop(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	AddSpace(ctx context.Context) error
	DeleteChar(ctx context.Context) error
	Clear(ctx context.Context) error
	Running() bool
	Word() string
}

// Shell reads commands and forwards them to a Controller. It doubles as the
// session.Confirmer, reading the answer from the same prompt.
type Shell struct {
	r      LineReader
	out    io.Writer
	logger logrus.FieldLogger
	prompt string
}

// NewShell returns a Shell reading from r and printing to out.
func NewShell(r LineReader, out io.Writer, logger logrus.FieldLogger) *Shell {
	return &Shell{r: r, out: out, logger: logger, prompt: DefaultPrompt}
}

// NewReadline builds the readline instance used by the panel.
func NewReadline(historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          DefaultPrompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("toggle"),
			readline.PcItem("start"),
			readline.PcItem("stop"),
			readline.PcItem("space"),
			readline.PcItem("delete"),
			readline.PcItem("clear"),
			readline.PcItem("word"),
			readline.PcItem("status"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
}

// Confirm asks prompt and accepts only y or yes.
func (s *Shell) Confirm(prompt string) bool {
	s.r.SetPrompt(prompt + " [y/N] ")
	defer s.r.SetPrompt(s.prompt)
	line, err := s.r.Readline()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Run reads commands until quit, EOF, an interrupt on an empty line, or ctx
// cancellation.
func (s *Shell) Run(ctx context.Context, ctrl Controller) error {
	s.printHelp()
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := s.r.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if strings.TrimSpace(line) == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := s.Dispatch(ctx, ctrl, line); quit {
			return nil
		}
	}
}

// Dispatch runs one command line and reports whether the shell should exit.
func (s *Shell) Dispatch(ctx context.Context, ctrl Controller, line string) bool {
	var err error
	switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
	case "":
		return false
	case "toggle", "t":
		err = ctrl.StartOrStop(ctx)
	case "start":
		err = ctrl.Start(ctx)
	case "stop":
		err = ctrl.Stop(ctx)
	case "space", "s":
		err = ctrl.AddSpace(ctx)
	case "delete", "d", "backspace":
		err = ctrl.DeleteChar(ctx)
	case "clear", "c":
		err = ctrl.Clear(ctx)
	case "word", "w":
		fmt.Fprintf(s.out, "word   %s\n", ctrl.Word())
	case "status":
		state := "idle"
		if ctrl.Running() {
			state = "active"
		}
		fmt.Fprintf(s.out, "session %s, word %s\n", state, ctrl.Word())
	case "help", "?", "h":
		s.printHelp()
	case "quit", "q", "exit":
		return true
	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", cmd)
	}
	switch {
	case err == nil:
	case errors.Is(err, session.ErrBusy):
		fmt.Fprintln(s.out, "busy: start/stop already in progress")
	case errors.Is(err, session.ErrDeclined):
		fmt.Fprintln(s.out, "clear cancelled")
	default:
		// Already reported through the status line.
		s.logger.WithError(err).Debug("command failed")
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "commands: toggle|t  start  stop  space|s  delete|d  clear|c  word|w  status  help  quit")
}
