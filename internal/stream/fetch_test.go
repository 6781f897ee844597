package stream

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetchWritesExactBody(t *testing.T) {
	body := testBody(50_000)
	srv := newSequenceServer(t, bodyHandler(body))

	tests := []struct {
		name      string
		chunkSize int
	}{
		{"single byte", 1},
		{"odd size", 7},
		{"one KB", 1024},
		{"default", DefaultChunkSize},
		{"larger than body", 100_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, srv.URL)
			req.ChunkSize = tt.chunkSize
			outcome, err := Fetch(context.Background(), req, nil)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if !outcome.Completed() {
				t.Fatalf("status = %s, want completed", outcome.Status)
			}
			if outcome.TotalBytes != int64(len(body)) {
				t.Errorf("TotalBytes = %d, want %d", outcome.TotalBytes, len(body))
			}
			if got := readFile(t, req.OutputPath); !bytes.Equal(got, body) {
				t.Errorf("file content differs from body (got %d bytes)", len(got))
			}
			assertNoPartFile(t, req.OutputPath)
		})
	}
}

func TestFetchProgressIsMonotonic(t *testing.T) {
	body := testBody(64 * 1024)
	srv := newSequenceServer(t, bodyHandler(body))
	req := newRequest(t, srv.URL)
	req.ChunkSize = 500

	rec := &recordingReporter{}
	if _, err := Fetch(context.Background(), req, rec); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(rec.progress) == 0 {
		t.Fatal("no progress reported")
	}
	var last int64
	for i, p := range rec.progress {
		if p.BytesWritten < last {
			t.Fatalf("progress[%d] = %d went below %d", i, p.BytesWritten, last)
		}
		if p.Elapsed <= 0 || p.RateKBs < 0 {
			t.Fatalf("progress[%d] has elapsed %s rate %f", i, p.Elapsed, p.RateKBs)
		}
		if p.Attempt != 1 {
			t.Fatalf("progress[%d].Attempt = %d, want 1", i, p.Attempt)
		}
		last = p.BytesWritten
	}
	info, err := os.Stat(req.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if last != info.Size() {
		t.Errorf("final progress %d != file size %d", last, info.Size())
	}
	if len(rec.outcomes) != 0 {
		t.Errorf("Fetch must not report an outcome, got %d", len(rec.outcomes))
	}
}

func TestFetchCreatesParentDirectories(t *testing.T) {
	body := testBody(2048)
	srv := newSequenceServer(t, bodyHandler(body))
	req := newRequest(t, srv.URL)
	req.OutputPath = filepath.Join(t.TempDir(), "a", "b", "c.mp3")

	if _, err := Fetch(context.Background(), req, nil); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := readFile(t, req.OutputPath); !bytes.Equal(got, body) {
		t.Error("file content differs from body")
	}
}

func TestFetchStatusCheckedBeforeBody(t *testing.T) {
	srv := newSequenceServer(t, statusHandler(500))
	req := newRequest(t, srv.URL)

	_, err := Fetch(context.Background(), req, nil)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindHTTPStatus || fe.StatusCode != 500 {
		t.Fatalf("err = %v, want http-status 500", err)
	}
	if _, statErr := os.Stat(req.OutputPath); !os.IsNotExist(statErr) {
		t.Error("output file must not exist after a status failure")
	}
}

func TestFetchCanceledDiscardsPartFile(t *testing.T) {
	srv := newSequenceServer(t, endlessHandler(testBody(1024), 5*time.Millisecond))
	req := newRequest(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reporter := ReporterFuncs{Progress: func(p Progress) {
		if p.BytesWritten >= 4096 {
			cancel()
		}
	}}
	_, err := Fetch(ctx, req, reporter)
	if KindOf(err) != KindCanceled || !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if _, statErr := os.Stat(req.OutputPath); !os.IsNotExist(statErr) {
		t.Error("output file must not exist after cancellation")
	}
	assertNoPartFile(t, req.OutputPath)
}

func TestFetchStopsAtMaxBytes(t *testing.T) {
	srv := newSequenceServer(t, endlessHandler(testBody(3000), time.Millisecond))
	req := newRequest(t, srv.URL)
	req.MaxBytes = 10_000

	outcome, err := Fetch(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if outcome.TotalBytes != 10_000 {
		t.Errorf("TotalBytes = %d, want 10000", outcome.TotalBytes)
	}
	if got := readFile(t, req.OutputPath); len(got) != 10_000 {
		t.Errorf("file size = %d, want 10000", len(got))
	}
}

func TestFetchStopsAtMaxDuration(t *testing.T) {
	srv := newSequenceServer(t, endlessHandler(testBody(512), 10*time.Millisecond))
	req := newRequest(t, srv.URL)
	req.MaxDuration = 150 * time.Millisecond

	outcome, err := Fetch(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !outcome.Completed() || outcome.TotalBytes == 0 {
		t.Fatalf("outcome = %+v, want completed with data", outcome)
	}
	if got := readFile(t, req.OutputPath); int64(len(got)) != outcome.TotalBytes {
		t.Errorf("file size = %d, want %d", len(got), outcome.TotalBytes)
	}
}

func TestFetchIgnoresReporterPanic(t *testing.T) {
	body := testBody(20_000)
	srv := newSequenceServer(t, bodyHandler(body))
	req := newRequest(t, srv.URL)

	reporter := ReporterFuncs{Progress: func(Progress) { panic("display crashed") }}
	outcome, err := Fetch(context.Background(), req, reporter)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if outcome.TotalBytes != int64(len(body)) {
		t.Errorf("TotalBytes = %d, want %d", outcome.TotalBytes, len(body))
	}
}

func TestFetchRateLimit(t *testing.T) {
	body := testBody(8192)
	srv := newSequenceServer(t, bodyHandler(body))
	req := newRequest(t, srv.URL)
	req.ChunkSize = 1024
	req.RateLimit = 32 * 1024

	start := time.Now()
	if _, err := Fetch(context.Background(), req, nil); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	// 8 KB at 32 KB/s with a 1 KB burst needs roughly 220ms
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("download took %s, rate limit not applied", elapsed)
	}
}

func TestFetchRejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Request)
		kind Kind
		want error
	}{
		{"unsupported scheme", func(r *Request) { r.URL = "ftp://example.com/stream.mp3" }, KindInvalidURL, nil},
		{"missing host", func(r *Request) { r.URL = "http:///stream.mp3" }, KindInvalidURL, nil},
		{"garbage", func(r *Request) { r.URL = "::not a url" }, KindInvalidURL, nil},
		{"negative chunk", func(r *Request) { r.ChunkSize = -1 }, KindOther, ErrInvalidRequest},
		{"empty output", func(r *Request) { r.OutputPath = "" }, KindOther, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, "http://127.0.0.1:1/stream.mp3")
			tt.mod(&req)
			_, err := Fetch(context.Background(), req, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if KindOf(err) != tt.kind {
				t.Errorf("kind = %s, want %s", KindOf(err), tt.kind)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFetchFilesystemError(t *testing.T) {
	srv := newSequenceServer(t, bodyHandler(testBody(100)))
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	req := newRequest(t, srv.URL)
	req.OutputPath = filepath.Join(blocker, "out.mp3")

	_, err := Fetch(context.Background(), req, nil)
	if KindOf(err) != KindFilesystem {
		t.Fatalf("err = %v, want filesystem error", err)
	}
}
