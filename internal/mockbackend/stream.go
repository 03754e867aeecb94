package mockbackend

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"sync"
	"time"
)

// frameSource renders small solid frames whose shade cycles, so consecutive
// frames differ.
type frameSource struct {
	mu     sync.Mutex
	width  int
	height int
	n      int
}

func newFrameSource(width, height int) *frameSource {
	return &frameSource{width: width, height: height}
}

func (f *frameSource) next() ([]byte, error) {
	f.mu.Lock()
	f.n++
	shade := uint8(f.n * 16)
	f.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	fill := color.RGBA{R: shade, G: 128, B: 255 - shade, A: 255}
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// handleVideoFeed streams MJPEG frames while the webcam runs.
func (b *Backend) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	if !b.Running() {
		http.Error(w, "webcam not running", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for b.Running() {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, err := b.frames.next()
		if err != nil {
			b.logger.Warnf("encode frame: %v", err)
			return
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(b.frameInterval):
		}
	}
}
