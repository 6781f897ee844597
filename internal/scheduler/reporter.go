package scheduler

import (
	"fmt"

	"github.com/tanq16/radiograb/internal/observability"
	"github.com/tanq16/radiograb/internal/output"
	"github.com/tanq16/radiograb/internal/stream"
)

// jobReporter forwards progress of one job to the display and metrics. It is
// only called from the worker goroutine running that job.
type jobReporter struct {
	id          int
	outputMgr   *output.Manager
	metrics     *observability.Metrics
	attempt     int
	lastWritten int64
}

func newJobReporter(id int, outputMgr *output.Manager, metrics *observability.Metrics) *jobReporter {
	return &jobReporter{id: id, outputMgr: outputMgr, metrics: metrics, attempt: 1}
}

func (r *jobReporter) OnProgress(p stream.Progress) {
	if p.Attempt != r.attempt {
		r.attempt = p.Attempt
		r.lastWritten = 0
		r.outputMgr.AddStreamLine(r.id, fmt.Sprintf("Attempt %d, restarting from 0 bytes", p.Attempt))
	}
	if delta := p.BytesWritten - r.lastWritten; delta > 0 {
		r.metrics.BytesWritten.Add(float64(delta))
	}
	r.lastWritten = p.BytesWritten
	if r.outputMgr.GetStatus(r.id) != "downloading" {
		r.outputMgr.SetStatus(r.id, "downloading")
	}
	r.outputMgr.SetProgress(r.id, p.BytesWritten, p.Elapsed, p.RateKBs)
}

func (r *jobReporter) OnOutcome(o stream.Outcome) {
	r.metrics.ObserveAttempts(o.Attempts)
	if o.Completed() {
		r.metrics.DownloadsCompleted.Inc()
		r.metrics.Duration.Observe(o.TotalTime.Seconds())
		return
	}
	r.metrics.DownloadsFailed.WithLabelValues(stream.KindOf(o.Reason).String()).Inc()
}
