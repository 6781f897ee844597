package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveQuality(t *testing.T) {
	tests := []struct {
		selector  string
		wantURL   string
		wantLabel string
		wantErr   bool
	}{
		{"high", DefaultHighURL, QualityHigh, false},
		{"HIGH", DefaultHighURL, QualityHigh, false},
		{"192kbps", DefaultHighURL, QualityHigh, false},
		{"mid", DefaultMidURL, QualityMid, false},
		{" 128 ", DefaultMidURL, QualityMid, false},
		{"https://example.com/live.mp3", "https://example.com/live.mp3", QualityCustom, false},
		{"low", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			gotURL, gotLabel, err := ResolveQuality(tt.selector, DefaultHighURL, DefaultMidURL)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownQuality) {
					t.Fatalf("err = %v, want ErrUnknownQuality", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if gotURL != tt.wantURL || gotLabel != tt.wantLabel {
				t.Errorf("ResolveQuality(%q) = %s, %s", tt.selector, gotURL, gotLabel)
			}
		})
	}
}

func TestStreamFileName(t *testing.T) {
	ts := time.Date(2023, 11, 7, 9, 5, 59, 0, time.UTC)
	if got := StreamFileName(ts, QualityMid); got != "2023-11-07_09-05_stream_128kbps.mp3" {
		t.Errorf("StreamFileName() = %s", got)
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := map[string]string{
		"https://host/bytefm/main/high/stream.mp3": "stream.mp3",
		"https://host/":                            "download",
		"https://host":                             "download",
		"https://host/a.mp3?token=1":               "a.mp3",
	}
	for in, want := range tests {
		if got := FileNameFromURL(in); got != want {
			t.Errorf("FileNameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "show.mp3")
	if got := RenewOutputPath(base); got != filepath.Join(dir, "show-(1).mp3") {
		t.Errorf("RenewOutputPath() = %s", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "show-(1).mp3"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if got := RenewOutputPath(base); got != filepath.Join(dir, "show-(2).mp3") {
		t.Errorf("RenewOutputPath() with taken suffix = %s", got)
	}
}

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{"Icy-MetaData: 1", "Authorization: Basic a:b", "broken"})
	if len(got) != 2 || got["Icy-MetaData"] != "1" || got["Authorization"] != "Basic a:b" {
		t.Errorf("ParseHeaderArgs() = %v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.00 KB",
		5 * 1024 * 1024: "5.00 MB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := map[time.Duration]string{
		12 * time.Second:                "12 seconds",
		90 * time.Second:                "1 m, 30 s",
		2*time.Hour + 5*time.Minute + 3: "2 h, 5 m",
	}
	for in, want := range tests {
		if got := FormatElapsed(in); got != want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTempPartPath(t *testing.T) {
	got := TempPartPath(filepath.Join("rec", "show.mp3"))
	if got != filepath.Join("rec", TempDirName, "show.mp3.part") {
		t.Errorf("TempPartPath() = %s", got)
	}
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	tempDir := filepath.Join(dir, TempDirName)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.mp3.part", "b.mp3.part"} {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := Clean(dir)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := os.Stat(tempDir); !os.IsNotExist(err) {
		t.Error("empty temp dir was not removed")
	}
	if removed, err := Clean(dir); err != nil || removed != 0 {
		t.Errorf("second Clean() = %d, %v", removed, err)
	}
}
