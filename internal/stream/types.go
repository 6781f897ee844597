// Package stream records a chunked HTTP body to disk with progress reporting
// and bounded retries.
package stream

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/radiograb/internal/utils"
)

const (
	DefaultChunkSize   = utils.DefaultChunkSize
	DefaultTimeout     = utils.DefaultTimeout
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 2 * time.Second
)

// Request describes one download. It must not be modified once Run or Fetch
// has been called with it.
type Request struct {
	URL         string
	OutputPath  string
	ChunkSize   int
	MaxRetries  int
	BackoffBase time.Duration
	// Timeout bounds connecting and every wait for the next chunk.
	Timeout time.Duration
	// MaxDuration and MaxBytes end an otherwise endless stream as a success.
	MaxDuration time.Duration
	MaxBytes    int64
	// RateLimit caps throughput in bytes per second.
	RateLimit int64
	Client    utils.HTTPDoer
}

func (r Request) withDefaults() Request {
	if r.ChunkSize == 0 {
		r.ChunkSize = DefaultChunkSize
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}
	if r.Client == nil {
		r.Client = utils.NewHTTPClient(utils.HTTPClientConfig{Timeout: r.Timeout})
	}
	return r
}

func (r Request) validate() error {
	switch {
	case r.OutputPath == "":
		return fmt.Errorf("%w: empty output path", ErrInvalidRequest)
	case r.ChunkSize < 1:
		return fmt.Errorf("%w: chunk size %d", ErrInvalidRequest, r.ChunkSize)
	case r.MaxRetries < 0:
		return fmt.Errorf("%w: max retries %d", ErrInvalidRequest, r.MaxRetries)
	case r.BackoffBase < 0 || r.Timeout < 0 || r.MaxDuration < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidRequest)
	case r.MaxBytes < 0 || r.RateLimit < 0:
		return fmt.Errorf("%w: negative limit", ErrInvalidRequest)
	}
	return nil
}

// Progress is a snapshot taken after each chunk of an attempt.
type Progress struct {
	BytesWritten int64
	Elapsed      time.Duration
	RateKBs      float64
	Attempt      int
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Outcome struct {
	Status     Status
	TotalBytes int64
	TotalTime  time.Duration
	Reason     error
	Attempts   int
}

func (o Outcome) Completed() bool {
	return o.Status == StatusCompleted
}

type Reporter interface {
	OnProgress(Progress)
	OnOutcome(Outcome)
}

// ReporterFuncs adapts plain functions to Reporter; nil fields are skipped.
type ReporterFuncs struct {
	Progress func(Progress)
	Outcome  func(Outcome)
}

func (f ReporterFuncs) OnProgress(p Progress) {
	if f.Progress != nil {
		f.Progress(p)
	}
}

func (f ReporterFuncs) OnOutcome(o Outcome) {
	if f.Outcome != nil {
		f.Outcome(o)
	}
}

// notify runs a reporter callback and swallows any panic it raises.
func notify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("op", "stream/types").Msgf("Ignoring panic in progress reporter: %v", r)
		}
	}()
	fn()
}
