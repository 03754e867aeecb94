package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"handword/internal/backend"
	"handword/internal/panel"
	"handword/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd asks the backend to open its webcam.
func NewStartCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the backend webcam",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			res, err := e.client.StartWebcam(cmd.Context())
			if err != nil {
				return fmt.Errorf("could not connect to backend: %w", err)
			}
			if !res.Success {
				return fmt.Errorf("failed to start webcam: %s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webcam active")
			fmt.Fprintf(cmd.OutOrStdout(), "stream %s\n", e.client.VideoFeedURL())
			return nil
		},
	}
}

// NewStopCmd asks the backend to release its webcam.
func NewStopCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the backend webcam",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			res, err := e.client.StopWebcam(cmd.Context())
			if err != nil {
				return fmt.Errorf("error stopping webcam: %w", err)
			}
			if !res.Success {
				return fmt.Errorf("failed to stop webcam: %s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webcam stopped")
			return nil
		},
	}
}

// NewWordCmd prints the word being composed.
func NewWordCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "word",
		Short: "Print the current word",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			word, err := e.client.GetWord(cmd.Context())
			if err != nil {
				return err
			}
			if word == "" {
				word = e.cfg.Placeholder()
			}
			fmt.Fprintln(cmd.OutOrStdout(), word)
			return nil
		},
	}
}

// NewSpaceCmd appends a space to the word.
func NewSpaceCmd(cfgPath *string) *cobra.Command {
	return editCmd(cfgPath, "space", "Append a space to the word", (*session.Controller).AddSpace)
}

// NewDeleteCmd removes the last character.
func NewDeleteCmd(cfgPath *string) *cobra.Command {
	cmd := editCmd(cfgPath, "delete", "Delete the last character", (*session.Controller).DeleteChar)
	cmd.Aliases = []string{"backspace"}
	return cmd
}

// NewClearCmd empties the word after confirmation.
func NewClearCmd(cfgPath *string) *cobra.Command {
	cmd := editCmd(cfgPath, "clear", "Clear the whole word", (*session.Controller).Clear)
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func editCmd(cfgPath *string, use, short string, op func(*session.Controller, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			confirmer := promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			if yes, _ := cmd.Flags().GetBool("yes"); yes || !e.cfg.UI.ConfirmClear {
				confirmer = session.AutoConfirm
			}
			ctrl := session.New(e.client, panel.NewTerminal(cmd.OutOrStdout(), false),
				session.WithLogger(e.logger),
				session.WithPlaceholder(e.cfg.Placeholder()),
				session.WithConfirmer(confirmer),
			)
			err = op(ctrl, cmd.Context())
			if errors.Is(err, session.ErrDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), "clear cancelled")
				return nil
			}
			return err
		},
	}
}

// NewWatchCmd prints word changes until interrupted.
func NewWatchCmd(cfgPath *string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the word and print each change",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			w := watcher{
				client:      e.client,
				out:         cmd.OutOrStdout(),
				logger:      e.logger,
				interval:    e.cfg.PollInterval(),
				placeholder: e.cfg.Placeholder(),
			}
			return w.run(ctx, count)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many changes (0 = forever)")
	return cmd
}

type wordGetter interface {
	GetWord(ctx context.Context) (string, error)
}

type watcher struct {
	client      wordGetter
	out         io.Writer
	logger      logrus.FieldLogger
	interval    time.Duration
	placeholder string
}

// run polls immediately and then every interval. The first reading counts as
// a change. Failed polls are logged and skipped.
func (w watcher) run(ctx context.Context, count int) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	var last string
	seen, changes := false, 0
	for {
		word, err := w.client.GetWord(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			w.logger.WithError(err).Warn("get word failed")
		default:
			if word == "" {
				word = w.placeholder
			}
			if !seen || word != last {
				seen, last = true, word
				changes++
				fmt.Fprintf(w.out, "%s  %s\n", time.Now().Format("15:04:05"), word)
				if count > 0 && changes >= count {
					return nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// NewSnapshotCmd saves one frame of the video feed.
func NewSnapshotCmd(cfgPath *string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save one JPEG frame from the video feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(*cfgPath)
			if err != nil {
				return err
			}
			frame, err := e.client.Snapshot(cmd.Context())
			var se *backend.StatusError
			if errors.As(err, &se) && se.Code == http.StatusConflict {
				return fmt.Errorf("webcam not running, start it first")
			}
			if err != nil {
				return err
			}
			if err := writeAtomic(output, frame); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d bytes to %s\n", len(frame), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "frame.jpg", "output file")
	return cmd
}

// writeAtomic writes to a .part file next to dest and renames it into place.
func writeAtomic(dest string, data []byte) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := dest + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
