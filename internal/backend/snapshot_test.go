package backend

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReadsFirstFrame(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.StartWebcam(ctx)
	require.NoError(t, err)

	frame, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Greater(t, len(frame), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, frame[:2])
}

func TestSnapshotWhileStopped(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Snapshot(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
}

func TestFirstFrame(t *testing.T) {
	body := "--frame\r\nContent-Type: text/plain\r\n\r\nmeta\r\n" +
		"--frame\r\nContent-Type: image/jpeg\r\n\r\nJPEGDATA\r\n" +
		"--frame--\r\n"
	got, err := firstFrame("multipart/x-mixed-replace; boundary=frame", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "JPEGDATA", string(got))

	got, err = firstFrame("image/jpeg", strings.NewReader("RAW"))
	require.NoError(t, err)
	assert.Equal(t, "RAW", string(got))

	_, err = firstFrame("multipart/x-mixed-replace; boundary=frame", strings.NewReader("--frame--\r\n"))
	assert.ErrorIs(t, err, ErrNoFrame)

	_, err = firstFrame("application/json", strings.NewReader("{}"))
	assert.Error(t, err)
}
