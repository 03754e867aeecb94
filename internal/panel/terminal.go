// Package panel renders the session in a terminal and reads commands from
// an interactive prompt.
package panel

import (
	"fmt"
	"io"
	"sync"

	"handword/internal/session"
)

const (
	green = "\033[32m"
	red   = "\033[31m"
	bold  = "\033[1m"
	dim   = "\033[2m"
	reset = "\033[0m"
)

// Terminal is a session.View writing one line per change. Identical words
// from consecutive polls are printed once.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	color    bool
	word     string
	hasWord  bool
	streamOn bool
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer, color bool) *Terminal {
	return &Terminal{out: out, color: color}
}

// SetOutput redirects future lines, e.g. to a readline instance's stdout.
func (t *Terminal) SetOutput(out io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out = out
}

func (t *Terminal) ShowStream(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streamOn = true
	t.printf("stream %s %s(open in a browser to watch)%s\n", url, t.c(dim), t.c(reset))
}

func (t *Terminal) HideStream() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.streamOn {
		return
	}
	t.streamOn = false
	t.printf("stream hidden\n")
}

func (t *Terminal) SetWord(word string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasWord && word == t.word {
		return
	}
	t.word, t.hasWord = word, true
	t.printf("word   %s%s%s\n", t.c(bold), word, t.c(reset))
}

func (t *Terminal) SetStatus(s session.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	color := ""
	switch s.Kind {
	case session.StatusActive:
		color = green
	case session.StatusError:
		color = red
	}
	t.printf("status %s[%s]%s %s\n", t.c(color), s.Kind, t.c(reset), s.Text)
}

func (t *Terminal) SetToggleLabel(l session.ToggleLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("button %s (%s)\n", l.Text, l.Style)
}

// c returns code when color output is on.
func (t *Terminal) c(code string) string {
	if !t.color || code == "" {
		return ""
	}
	return code
}

func (t *Terminal) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}
