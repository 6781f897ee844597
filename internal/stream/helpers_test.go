package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testBody(size int) []byte {
	body := make([]byte, size)
	for i := range body {
		body[i] = byte((i*31 + 7) % 251)
	}
	return body
}

// bodyHandler writes body in small flushed pieces so the client sees a
// chunked stream without Content-Length.
func bodyHandler(body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for start := 0; start < len(body); start += 4096 {
			end := min(start+4096, len(body))
			if _, err := w.Write(body[start:end]); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func endlessHandler(piece []byte, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for {
			if _, err := w.Write(piece); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

func stallHandler(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

// dropHandler sends part of a body and then kills the connection.
func dropHandler(partial []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(partial)
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		conn.Close()
	}
}

// sequenceServer serves handlers[i] for the i-th request and repeats the
// last one afterwards.
type sequenceServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newSequenceServer(t *testing.T, handlers ...http.HandlerFunc) *sequenceServer {
	t.Helper()
	s := &sequenceServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.hits.Add(1)) - 1
		if n >= len(handlers) {
			n = len(handlers) - 1
		}
		handlers[n](w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func statusHandler(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}

type recordingReporter struct {
	mu       sync.Mutex
	progress []Progress
	outcomes []Outcome
	// progressAfterOutcome counts snapshots delivered after the outcome
	progressAfterOutcome int
}

func (r *recordingReporter) OnProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) > 0 {
		r.progressAfterOutcome++
	}
	r.progress = append(r.progress, p)
}

func (r *recordingReporter) OnOutcome(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })
	return &slept
}

func newRequest(t *testing.T, url string) Request {
	t.Helper()
	return Request{
		URL:         url,
		OutputPath:  filepath.Join(t.TempDir(), "out.mp3"),
		ChunkSize:   1024,
		MaxRetries:  3,
		BackoffBase: time.Second,
		Timeout:     2 * time.Second,
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}

func assertNoPartFile(t *testing.T, outputPath string) {
	t.Helper()
	tempDir := filepath.Join(filepath.Dir(outputPath), ".radiograb-temp")
	if _, err := os.Stat(tempDir); !os.IsNotExist(err) {
		t.Errorf("expected temp dir %s to be removed, stat err = %v", tempDir, err)
	}
}
