package utils

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// ResolveQuality maps a quality selector or a direct URL to the stream URL
// and the label used in file names.
func ResolveQuality(selector, highURL, midURL string) (string, string, error) {
	s := strings.TrimSpace(selector)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s, QualityCustom, nil
	}
	switch qualityAliases[strings.ToLower(s)] {
	case QualityHigh:
		return highURL, QualityHigh, nil
	case QualityMid:
		return midURL, QualityMid, nil
	}
	return "", "", fmt.Errorf("%w: %q (use high, mid or a URL)", ErrUnknownQuality, selector)
}

func StreamFileName(t time.Time, quality string) string {
	return fmt.Sprintf("%s_stream_%s.mp3", t.Format("2006-01-02_15-04"), quality)
}

// FileNameFromURL infers an output name from the last URL path segment.
func FileNameFromURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return "download"
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}

func RenewOutputPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			return outputPath
		}
		index++
	}
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatElapsed renders hours and minutes past an hour, minutes and seconds
// past a minute, plain seconds otherwise.
func FormatElapsed(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case secs >= 3600:
		return fmt.Sprintf("%d h, %d m", secs/3600, (secs%3600)/60)
	case secs >= 60:
		return fmt.Sprintf("%d m, %d s", secs/60, secs%60)
	default:
		return fmt.Sprintf("%d seconds", secs)
	}
}

func TempPartPath(outputPath string) string {
	dir := filepath.Join(filepath.Dir(outputPath), TempDirName)
	return filepath.Join(dir, filepath.Base(outputPath)+".part")
}

// RemoveTempDirIfEmpty drops the temp directory next to outputPath once the
// last part file in it is gone.
func RemoveTempDirIfEmpty(outputPath string) error {
	tempDir := filepath.Join(filepath.Dir(outputPath), TempDirName)
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(entries) == 0 {
		return os.Remove(tempDir)
	}
	return nil
}

// Clean removes leftover part files under dir and returns how many were removed.
func Clean(dir string) (int, error) {
	tempDir := filepath.Join(dir, TempDirName)
	files, err := os.ReadDir(tempDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".part") {
			continue
		}
		if err := os.Remove(filepath.Join(tempDir, file.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	remainingFiles, err := os.ReadDir(tempDir)
	if err != nil {
		return removed, err
	}
	if len(remainingFiles) == 0 {
		if err := os.Remove(tempDir); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
