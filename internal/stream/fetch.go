package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/radiograb/internal/utils"
	"golang.org/x/time/rate"
)

// Fetch performs a single attempt of req without retrying. Progress is sent
// to reporter after every chunk; OnOutcome is left to the caller.
func Fetch(ctx context.Context, req Request, reporter Reporter) (Outcome, error) {
	if reporter == nil {
		reporter = ReporterFuncs{}
	}
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return Outcome{}, err
	}
	return fetchAttempt(ctx, req, 1, reporter)
}

func validateURL(link string) error {
	parsed, err := url.Parse(link)
	if err != nil {
		return &FetchError{Kind: KindInvalidURL, Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &FetchError{Kind: KindInvalidURL, Err: fmt.Errorf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return &FetchError{Kind: KindInvalidURL, Err: fmt.Errorf("missing host in %q", link)}
	}
	return nil
}

// createPartFile opens the attempt's part file from offset 0, creating the
// destination directory and the temp directory next to it.
func createPartFile(outputPath string) (string, *os.File, error) {
	partPath := utils.TempPartPath(outputPath)
	if err := os.MkdirAll(filepath.Dir(partPath), 0755); err != nil {
		return "", nil, filesystemError("error creating temp directory", err)
	}
	f, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", nil, filesystemError("error creating output file", err)
	}
	return partPath, f, nil
}

func fetchAttempt(ctx context.Context, req Request, attempt int, reporter Reporter) (Outcome, error) {
	if err := validateURL(req.URL); err != nil {
		return Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, canceledError(err)
	}

	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	idle := time.AfterFunc(req.Timeout, func() { cancel(errIdleTimeout) })
	defer idle.Stop()
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Outcome{}, &FetchError{Kind: KindInvalidURL, Err: err}
	}
	log.Debug().Str("op", "stream/fetch").Msgf("Sending GET to %s", req.URL)
	resp, err := req.Client.Do(httpReq)
	if err != nil {
		return Outcome{}, classifyNetworkError(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, statusError(resp.StatusCode)
	}
	log.Debug().Str("op", "stream/fetch").Msgf("Connected (%s, %s)", resp.Status, resp.Header.Get("Content-Type"))

	if req.MaxDuration > 0 {
		limit := time.AfterFunc(req.MaxDuration, func() { cancel(errDurationReached) })
		defer limit.Stop()
	}

	partPath, outFile, err := createPartFile(req.OutputPath)
	if err != nil {
		return Outcome{}, err
	}
	committed := false
	defer func() {
		if !committed {
			outFile.Close()
			os.Remove(partPath)
			utils.RemoveTempDirIfEmpty(req.OutputPath)
		}
	}()

	var limiter *rate.Limiter
	if req.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(req.RateLimit), req.ChunkSize)
	}

	buffer := make([]byte, req.ChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, canceledError(err)
		}
		idle.Reset(req.Timeout)
		bytesRead, readErr := resp.Body.Read(buffer)
		idle.Stop()
		if bytesRead > 0 {
			if req.MaxBytes > 0 && written+int64(bytesRead) > req.MaxBytes {
				bytesRead = int(req.MaxBytes - written)
			}
			if limiter != nil {
				if err := limiter.WaitN(ctx, bytesRead); err != nil {
					return Outcome{}, canceledError(err)
				}
			}
			if _, err := outFile.Write(buffer[:bytesRead]); err != nil {
				return Outcome{}, filesystemError("error writing to output file", err)
			}
			written += int64(bytesRead)
			elapsed := time.Since(start)
			if elapsed > 0 {
				p := Progress{
					BytesWritten: written,
					Elapsed:      elapsed,
					RateKBs:      float64(written) / elapsed.Seconds() / 1024,
					Attempt:      attempt,
				}
				notify(func() { reporter.OnProgress(p) })
			}
			if req.MaxBytes > 0 && written >= req.MaxBytes {
				log.Debug().Str("op", "stream/fetch").Msgf("Size limit of %d bytes reached", req.MaxBytes)
				break
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if errors.Is(context.Cause(attemptCtx), errDurationReached) && ctx.Err() == nil {
				log.Debug().Str("op", "stream/fetch").Msgf("Duration limit of %s reached", req.MaxDuration)
				break
			}
			return Outcome{}, classifyNetworkError(ctx, attemptCtx, fmt.Errorf("error reading response body: %w", readErr))
		}
	}

	if err := outFile.Sync(); err != nil {
		return Outcome{}, filesystemError("error syncing output file", err)
	}
	if err := outFile.Close(); err != nil {
		return Outcome{}, filesystemError("error closing output file", err)
	}
	if err := os.Rename(partPath, req.OutputPath); err != nil {
		return Outcome{}, filesystemError("error finalizing output file", err)
	}
	committed = true
	if err := utils.RemoveTempDirIfEmpty(req.OutputPath); err != nil {
		log.Debug().Str("op", "stream/fetch").Err(err).Msg("Temp directory left in place")
	}
	return Outcome{
		Status:     StatusCompleted,
		TotalBytes: written,
		TotalTime:  time.Since(start),
	}, nil
}
