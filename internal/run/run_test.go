package run

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"handword/internal/config"
	"handword/internal/hook"
	"handword/internal/logging"
	"handword/internal/mockbackend"
	"handword/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lines []string

func (l *lines) Readline() (string, error) {
	if len(*l) == 0 {
		return "", io.EOF
	}
	line := (*l)[0]
	*l = (*l)[1:]
	return line, nil
}

func (l *lines) SetPrompt(string) {}

// syncBuffer is shared by the shell and the poll goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Backend.URL = url
	cfg.Poll.IntervalMS = 20
	cfg.UI.TeardownGraceMS = 2000
	cfg.Paths.StateDir = t.TempDir()
	return cfg
}

func TestRunPanelSessionAndTeardown(t *testing.T) {
	mock := mockbackend.New()
	srv := httptest.NewServer(mock)
	defer srv.Close()
	mock.SetWord("HELLO")

	cfg := testConfig(t, srv.URL)
	var out syncBuffer
	script := lines{"start", "space", "clear", "y"}

	err := runPanel(context.Background(), cfg, logging.NewTestLogger(), &script, &out, false)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.Calls("/start_webcam"))
	assert.Equal(t, 1, mock.Calls("/add_space"))
	assert.Equal(t, 1, mock.Calls("/clear_word"))
	assert.Equal(t, 1, mock.Calls("/stop_webcam"), "EOF tears down the active session")
	assert.False(t, mock.Running())
	assert.Equal(t, "", mock.Word())

	text := out.String()
	assert.Contains(t, text, "status [active] Connected to backend - Ready to start")
	assert.Contains(t, text, "status [active] Webcam active - Show hand gestures")
	assert.Contains(t, text, "stream "+srv.URL+"/video_feed")
	assert.Contains(t, text, "status [active] Word cleared")
}

func TestRunPanelOfflineStaysUsable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Backend.Retries = 0
	var out bytes.Buffer
	script := lines{"start", "quit"}

	err := runPanel(context.Background(), cfg, logging.NewTestLogger(), &script, &out, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "status [error] Cannot connect to backend - Make sure the backend is running")
	assert.Contains(t, out.String(), "status [error] Error: Could not connect to backend")
}

func TestRunPanelRejectsBadHookCommand(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Hook.Command = `say "unterminated`
	err := runPanel(context.Background(), cfg, logging.NewTestLogger(), &lines{}, io.Discard, false)
	require.Error(t, err)
}

func TestNewClientUsesConfig(t *testing.T) {
	cfg := testConfig(t, "http://backend.local:8000/")
	client, err := NewClient(cfg, logging.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://backend.local:8000", client.BaseURL())
	assert.Equal(t, "http://backend.local:8000/video_feed", client.VideoFeedURL())
}

func TestMetricsHandler(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	runner, err := hook.NewRunner(cfg, logging.NewTestLogger())
	require.NoError(t, err)
	hooks := hook.NewDispatcher(runner, logging.NewTestLogger(), 1)
	ctrl := session.New(nil, nil)

	rec := httptest.NewRecorder()
	metricsHandler(ctrl, hooks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	body := rec.Body.String()
	for _, line := range []string{
		"handword_session_running 0",
		"handword_polls_total 0",
		"handword_poll_failures_total 0",
		"handword_commands_total 0",
		"handword_command_failures_total 0",
		"handword_hooks_sent_total 0",
		"handword_hooks_failed_total 0",
		"handword_hooks_dropped_total 0",
	} {
		assert.Contains(t, body, line+"\n")
	}

	rec = httptest.NewRecorder()
	metricsHandler(ctrl, hooks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
