package stream

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// sleep waits for d or until ctx is done. Tests replace it to observe backoff.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run downloads req with up to MaxRetries retries and linear backoff, and
// reports the terminal outcome to reporter exactly once. Each attempt starts
// from byte 0; a live stream cannot be resumed.
func Run(ctx context.Context, req Request, reporter Reporter) Outcome {
	if reporter == nil {
		reporter = ReporterFuncs{}
	}
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return finish(reporter, req, Outcome{Status: StatusFailed, Reason: err})
	}

	maxAttempts := req.MaxRetries + 1
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * req.BackoffBase
			log.Warn().Str("op", "stream/retry").Msgf("Retrying %s in %s (attempt %d/%d)", req.OutputPath, delay, attempt, maxAttempts)
			if err := sleep(ctx, delay); err != nil {
				lastErr = canceledError(err)
				break
			}
		}
		attempts = attempt
		log.Info().Str("op", "stream/retry").Int("attempt", attempt).Msgf("Starting download of %s to %s", req.URL, req.OutputPath)
		outcome, err := fetchAttempt(ctx, req, attempt, reporter)
		if err == nil {
			outcome.Attempts = attempt
			return finish(reporter, req, outcome)
		}
		lastErr = err
		retryable := IsRetryable(err)
		log.Error().Str("op", "stream/retry").Err(err).
			Int("attempt", attempt).
			Str("kind", KindOf(err).String()).
			Bool("retryable", retryable).
			Msgf("Download attempt %d failed", attempt)
		if !retryable {
			break
		}
	}
	return finish(reporter, req, Outcome{Status: StatusFailed, Reason: lastErr, Attempts: attempts})
}

func finish(reporter Reporter, req Request, outcome Outcome) Outcome {
	if outcome.Completed() {
		log.Info().Str("op", "stream/retry").
			Int64("bytes", outcome.TotalBytes).
			Dur("duration", outcome.TotalTime).
			Int("attempts", outcome.Attempts).
			Msgf("Download of %s completed", req.OutputPath)
	} else {
		log.Error().Str("op", "stream/retry").Err(outcome.Reason).
			Int("attempts", outcome.Attempts).
			Msgf("Download of %s failed", req.OutputPath)
	}
	notify(func() { reporter.OnOutcome(outcome) })
	return outcome
}
