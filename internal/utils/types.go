package utils

import "time"

type Job struct {
	ID               string
	JobType          string
	URL              string
	Quality          string
	OutputPath       string
	ChunkSize        int
	MaxRetries       int
	Backoff          time.Duration
	Timeout          time.Duration
	MaxDuration      time.Duration
	MaxBytes         int64
	RateLimit        int64
	HTTPClientConfig HTTPClientConfig
}

// Tuning holds the per-download knobs shared by every job a command builds.
type Tuning struct {
	ChunkSize   int
	MaxRetries  int
	Backoff     time.Duration
	Timeout     time.Duration
	MaxDuration time.Duration
	MaxBytes    int64
	RateLimit   int64
}

func (t Tuning) Apply(job *Job) {
	job.ChunkSize = t.ChunkSize
	job.MaxRetries = t.MaxRetries
	job.Backoff = t.Backoff
	job.Timeout = t.Timeout
	if job.MaxDuration == 0 {
		job.MaxDuration = t.MaxDuration
	}
	if job.MaxBytes == 0 {
		job.MaxBytes = t.MaxBytes
	}
	job.RateLimit = t.RateLimit
}
