package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"handword/internal/mockbackend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *mockbackend.Backend) {
	t.Helper()
	mb := mockbackend.New(mockbackend.WithFrameInterval(5 * time.Millisecond))
	srv := httptest.NewServer(mb)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c, mb
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)
}

func TestBaseURLIsNormalized(t *testing.T) {
	c, err := New("http://127.0.0.1:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", c.BaseURL())
	assert.Equal(t, "http://127.0.0.1:8000/video_feed", c.VideoFeedURL())
}

func TestProbeAndHealth(t *testing.T) {
	c, mb := newTestClient(t)
	ctx := context.Background()

	info, err := c.Probe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "online", info.(map[string]any)["status"])
	assert.Equal(t, "2.0.0", Version(info))

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.True(t, h.ModelsLoaded)

	mb.SetModelsLoaded(false)
	_, err = c.Health(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestProbeAcceptsAnyJSON(t *testing.T) {
	for _, body := range []string{`"online"`, `["ok"]`, `1`, `{}`} {
		c, mb := newTestClient(t)
		mb.Override(PathRoot, http.StatusOK, body)
		info, err := c.Probe(context.Background())
		require.NoError(t, err, "root body %s", body)
		assert.Equal(t, "", Version(info))
	}

	c, mb := newTestClient(t)
	mb.Override(PathRoot, http.StatusOK, `<html>`)
	_, err := c.Probe(context.Background())
	assert.Error(t, err)
}

func TestCommandReplyOnErrorStatus(t *testing.T) {
	c, mb := newTestClient(t)
	ctx := context.Background()

	mb.Override(PathStart, http.StatusServiceUnavailable, `{"success":false,"message":"camera busy"}`)
	res, err := c.StartWebcam(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Success: false, Message: "camera busy"}, res)

	mb.Override(PathDelete, http.StatusConflict, `{"success":false,"word":"AB"}`)
	wr, err := c.DeleteChar(ctx)
	require.NoError(t, err)
	assert.Equal(t, WordResult{Success: false, Word: "AB"}, wr)

	mb.Override(PathStart, http.StatusServiceUnavailable, `camera busy`)
	_, err = c.StartWebcam(ctx)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)

	mb.Override(PathGetWord, http.StatusServiceUnavailable, `{"word":"X"}`)
	_, err = c.GetWord(ctx)
	require.ErrorAs(t, err, &se, "reads keep the status error")
}

func TestWebcamCommands(t *testing.T) {
	c, mb := newTestClient(t)
	ctx := context.Background()

	res, err := c.StartWebcam(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, mb.Running())

	res, err = c.StopWebcam(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, mb.Running())

	mb.FailStart("camera busy")
	res, err = c.StartWebcam(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "camera busy", res.Message)
}

func TestWordCommands(t *testing.T) {
	c, mb := newTestClient(t)
	ctx := context.Background()
	mb.Type("ab")

	w, err := c.GetWord(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AB", w)

	wr, err := c.AddSpace(ctx)
	require.NoError(t, err)
	assert.Equal(t, WordResult{Success: true, Word: "AB "}, wr)

	wr, err = c.DeleteChar(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AB", wr.Word)

	res, err := c.ClearWord(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "", mb.Word())
}

func TestWordFallsBackToCurrentWord(t *testing.T) {
	c, mb := newTestClient(t)
	mb.Override(PathGetWord, http.StatusOK, `{"success":true,"current_word":"NEW"}`)
	mb.Override(PathAddSpace, http.StatusOK, `{"success":true,"current_word":"NEW "}`)

	w, err := c.GetWord(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NEW", w)

	wr, err := c.AddSpace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NEW ", wr.Word)
}

func TestMissingWordIsEmpty(t *testing.T) {
	c, mb := newTestClient(t)
	mb.Override(PathGetWord, http.StatusOK, `{}`)
	w, err := c.GetWord(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", w)
}

func TestGetIsRetriedOnServerError(t *testing.T) {
	c, mb := newTestClient(t, WithRetries(2, time.Millisecond))
	mb.Override(PathGetWord, http.StatusBadGateway, `bad gateway`)

	_, err := c.GetWord(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "bad gateway", se.Body)
	assert.Equal(t, 3, mb.Calls(PathGetWord))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	c, mb := newTestClient(t, WithRetries(2, time.Millisecond))
	mb.Override(PathGetWord, http.StatusNotFound, `{"detail":"Not Found"}`)

	_, err := c.GetWord(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, mb.Calls(PathGetWord))
}

func TestCommandsAreNeverRetried(t *testing.T) {
	c, mb := newTestClient(t, WithRetries(3, time.Millisecond))
	mb.Override(PathAddSpace, http.StatusInternalServerError, `oops`)

	_, err := c.AddSpace(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, mb.Calls(PathAddSpace))
}

func TestDecodeErrorIsNotRetried(t *testing.T) {
	c, mb := newTestClient(t, WithRetries(3, time.Millisecond))
	mb.Override(PathGetWord, http.StatusOK, `<html>`)

	_, err := c.GetWord(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode /get_word")
	assert.Equal(t, 1, mb.Calls(PathGetWord))
}

func TestTimeoutApplies(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	c, err := New(slow.URL, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	start := time.Now()
	_, err = c.StartWebcam(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRequestHeaders(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Clone())
		_, _ = w.Write([]byte(`{"word":"X"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithUserAgent("handword-test"))
	require.NoError(t, err)
	_, err = c.GetWord(context.Background())
	require.NoError(t, err)

	h := seen.Load().(http.Header)
	assert.Equal(t, "handword-test", h.Get("User-Agent"))
	assert.Len(t, h.Get("X-Request-ID"), 36)
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "GET /:"), "got %v", err)
}
