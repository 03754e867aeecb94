package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

const maxFrameBytes = 8 << 20

// Snapshot reads the first JPEG frame from the MJPEG video feed.
func (c *Client) Snapshot(ctx context.Context) ([]byte, error) {
	resp, cancel, err := c.send(ctx, http.MethodGet, PathVideoFeed)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()
	return firstFrame(resp.Header.Get("Content-Type"), resp.Body)
}

func firstFrame(contentType string, body io.Reader) ([]byte, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("video feed content type %q: %w", contentType, err)
	}
	if mediaType == "image/jpeg" {
		return readFrame(body)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("video feed: unexpected content type %q", mediaType)
	}
	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoFrame
		}
		if err != nil {
			return nil, fmt.Errorf("video feed: %w", err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
			continue
		}
		frame, err := readFrame(part)
		if err != nil {
			return nil, err
		}
		if len(frame) == 0 {
			continue
		}
		return frame, nil
	}
}

func readFrame(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFrameBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if len(data) > maxFrameBytes {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)
	}
	return data, nil
}
