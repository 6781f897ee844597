package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/radiograb/internal/observability"
	"github.com/tanq16/radiograb/internal/output"
	"github.com/tanq16/radiograb/internal/stream"
	"github.com/tanq16/radiograb/internal/utils"
)

var ErrJobsFailed = errors.New("one or more downloads failed")

type Options struct {
	Metrics *observability.Metrics
	Output  *output.Manager
}

// Run processes jobs on numWorkers goroutines and waits for all of them.
// Jobs must have distinct output paths.
func Run(ctx context.Context, jobs []utils.Job, numWorkers int, opts Options) error {
	outputMgr := opts.Output
	if outputMgr == nil {
		outputMgr = output.NewManager()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.New()
	}
	numWorkers = max(1, min(numWorkers, len(jobs)))

	outputMgr.StartDisplay()
	defer outputMgr.StopDisplay()

	jobCh := make(chan utils.Job, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			n := processJobs(ctx, jobCh, outputMgr, metrics)
			mu.Lock()
			failed += n
			mu.Unlock()
			log.Debug().Str("op", "scheduler").Msgf("Worker %d finished", workerID)
		}(i)
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrJobsFailed, failed, len(jobs))
	}
	return nil
}

// processJobs runs jobs from jobCh one at a time and returns how many failed.
func processJobs(ctx context.Context, jobCh <-chan utils.Job, outputMgr *output.Manager, metrics *observability.Metrics) int {
	failed := 0
	for job := range jobCh {
		funcID := outputMgr.RegisterFunction(job.OutputPath)
		if ctx.Err() != nil {
			outputMgr.ReportError(funcID, fmt.Errorf("%w before start", stream.ErrCanceled))
			failed++
			continue
		}
		outputMgr.SetStatus(funcID, "pending")
		outputMgr.SetMessage(funcID, fmt.Sprintf("Recording %s", filepath.Base(job.OutputPath)))
		log.Debug().Str("op", "scheduler").Str("job", job.ID).Msgf("Starting %s job for %s", job.JobType, job.URL)

		req := BuildRequest(job)
		reporter := newJobReporter(funcID, outputMgr, metrics)
		metrics.InProgress.Inc()
		outcome := stream.Run(ctx, req, reporter)
		metrics.InProgress.Dec()

		if outcome.Completed() {
			outputMgr.Complete(funcID, fmt.Sprintf("Recorded %s to %s in %s",
				utils.FormatBytes(uint64(outcome.TotalBytes)), job.OutputPath, utils.FormatElapsed(outcome.TotalTime)))
			continue
		}
		failed++
		outputMgr.ReportError(funcID, fmt.Errorf("after %d attempt(s): %w", outcome.Attempts, outcome.Reason))
		outputMgr.SetMessage(funcID, fmt.Sprintf("Failed %s", job.OutputPath))
	}
	return failed
}

// BuildRequest turns a job into a download request with its own HTTP client.
func BuildRequest(job utils.Job) stream.Request {
	clientCfg := job.HTTPClientConfig
	if clientCfg.Timeout == 0 {
		clientCfg.Timeout = job.Timeout
	}
	return stream.Request{
		URL:         job.URL,
		OutputPath:  job.OutputPath,
		ChunkSize:   job.ChunkSize,
		MaxRetries:  job.MaxRetries,
		BackoffBase: job.Backoff,
		Timeout:     job.Timeout,
		MaxDuration: job.MaxDuration,
		MaxBytes:    job.MaxBytes,
		RateLimit:   job.RateLimit,
		Client:      utils.NewHTTPClient(clientCfg),
	}
}
