// Package observability provides Prometheus metrics for recordings.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds all download metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	AttemptsTotal      prometheus.Counter
	RetriesTotal       prometheus.Counter
	DownloadsCompleted prometheus.Counter
	DownloadsFailed    *prometheus.CounterVec
	BytesWritten       prometheus.Counter
	InProgress         prometheus.Gauge
	Duration           prometheus.Histogram
}

// New creates and registers all download metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		AttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "radiograb",
			Subsystem: "downloads",
			Name:      "attempts_total",
			Help:      "Total number of fetch attempts",
		}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "radiograb",
			Subsystem: "downloads",
			Name:      "retries_total",
			Help:      "Total number of attempts made after a failed one",
		}),
		DownloadsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "radiograb",
			Subsystem: "downloads",
			Name:      "completed_total",
			Help:      "Total number of downloads completed successfully",
		}),
		DownloadsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radiograb",
			Subsystem: "downloads",
			Name:      "failed_total",
			Help:      "Total number of failed downloads by error kind",
		}, []string{"kind"}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "radiograb",
			Subsystem: "downloads",
			Name:      "bytes_written_total",
			Help:      "Total bytes written to part files, including discarded attempts",
		}),
		InProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "radiograb",
			Subsystem: "downloads",
			Name:      "in_progress",
			Help:      "Number of downloads currently running",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radiograb",
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of successful download duration in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
	}
}

// ObserveAttempts records how many attempts a finished download used.
func (m *Metrics) ObserveAttempts(attempts int) {
	if attempts <= 0 {
		return
	}
	m.AttemptsTotal.Add(float64(attempts))
	m.RetriesTotal.Add(float64(attempts - 1))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Str("op", "observability/metrics").Err(err).Msg("Metrics server shutdown failed")
		}
	}()
	log.Info().Str("op", "observability/metrics").Msgf("Serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
