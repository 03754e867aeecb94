// Package mockbackend emulates the gesture recognition service in memory.
// It backs the client tests and the mock-backend command used for local work
// without a camera.
package mockbackend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const version = "2.0.0"

type override struct {
	status int
	body   string
}

// Backend is an in-memory recognition service.
type Backend struct {
	mu            sync.Mutex
	running       bool
	session       string
	word          string
	modelsLoaded  bool
	startFailure  string
	overrides     map[string]override
	calls         map[string]int
	frameInterval time.Duration
	frames        *frameSource

	router *mux.Router
	logger logrus.FieldLogger
}

// Option customizes a Backend.
type Option func(*Backend)

// WithFrameInterval sets the pause between MJPEG frames.
func WithFrameInterval(d time.Duration) Option {
	return func(b *Backend) { b.frameInterval = d }
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Backend) { b.logger = l }
}

// New returns a Backend with its models loaded and the webcam stopped.
func New(opts ...Option) *Backend {
	b := &Backend{
		modelsLoaded:  true,
		overrides:     map[string]override{},
		calls:         map[string]int{},
		frameInterval: 66 * time.Millisecond, // ~15 FPS
		frames:        newFrameSource(64, 48),
		logger:        logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(b)
	}
	b.router = b.routes()
	return b
}

func (b *Backend) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(b.track)
	r.HandleFunc("/", b.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", b.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/start_webcam", b.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/stop_webcam", b.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/video_feed", b.handleVideoFeed).Methods(http.MethodGet)
	r.HandleFunc("/get_word", b.handleGetWord).Methods(http.MethodGet)
	r.HandleFunc("/add_space", b.handleAddSpace).Methods(http.MethodPost)
	r.HandleFunc("/delete_char", b.handleDeleteChar).Methods(http.MethodPost)
	r.HandleFunc("/clear_word", b.handleClearWord).Methods(http.MethodPost)
	return r
}

// ServeHTTP implements the http.Handler interface.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (b *Backend) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: b, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	b.logger.Infof("mock backend listening on http://%s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// track counts calls and serves canned overrides before the real handler.
func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		ov, ok := b.overrides[r.URL.Path]
		b.mu.Unlock()
		b.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": r.Header.Get("X-Request-ID"),
		}).Debug("mock backend request")
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ov.status)
			_, _ = w.Write([]byte(ov.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "online", "version": version})
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	ready := b.modelsLoaded
	b.mu.Unlock()
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "models_loaded": true})
}

func (b *Backend) handleStart(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startFailure != "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": b.startFailure})
		return
	}
	if b.running {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Webcam already running"})
		return
	}
	b.running = true
	b.session = uuid.NewString()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Webcam started"})
}

func (b *Backend) handleStop(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	b.session = ""
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleGetWord(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"word": b.Word()})
}

func (b *Backend) handleAddSpace(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.word += " "
	word := b.word
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "word": word})
}

func (b *Backend) handleDeleteChar(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	if b.word != "" {
		_, size := utf8.DecodeLastRuneInString(b.word)
		b.word = b.word[:len(b.word)-size]
	}
	word := b.word
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "word": word})
}

func (b *Backend) handleClearWord(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	previous := b.word
	b.word = ""
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "previous_word": previous, "word": ""})
}

// Type appends recognized letters to the word, as the recognizer would.
func (b *Backend) Type(letters string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.word += strings.ToUpper(letters)
}

// SetWord replaces the word.
func (b *Backend) SetWord(word string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.word = word
}

// Word returns the current word.
func (b *Backend) Word() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.word
}

// Running reports whether the webcam is started.
func (b *Backend) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Session returns the id of the current webcam session, empty when stopped.
func (b *Backend) Session() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// FailStart makes start_webcam answer success:false with msg. Empty restores it.
func (b *Backend) FailStart(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startFailure = msg
}

// SetModelsLoaded controls whether /health reports ready.
func (b *Backend) SetModelsLoaded(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modelsLoaded = ok
}

// Override serves status and body for path until ClearOverride is called.
func (b *Backend) Override(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[path] = override{status: status, body: body}
}

// ClearOverride restores the real handler for path.
func (b *Backend) ClearOverride(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.overrides, path)
}

// Calls returns how many requests hit path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
