package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freestylecal/internal/ports"
)

const namespace = "freestylecal"

// Recorder holds the application's collectors on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	eventsFetched *prometheus.CounterVec
	eventsWritten *prometheus.CounterVec
	eventsFailed  *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	lastRun       *prometheus.GaugeVec
	runDuration   prometheus.Histogram
	storedEvents  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.eventsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_events_fetched_total",
		Help:      "Validated events returned by a source, live or fallback",
	}, []string{"source"})
	r.eventsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_events_written_total",
		Help:      "Events upserted into the store",
	}, []string{"source"})
	r.eventsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_events_failed_total",
		Help:      "Events rejected by the store",
	}, []string{"source"})
	r.fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_fallback_total",
		Help:      "Runs where a source answered with its fallback table",
	}, []string{"source"})
	r.lastRun = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_last_run_timestamp_seconds",
		Help:      "Unix time a source last finished",
	}, []string{"source"})
	r.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregation_run_duration_seconds",
		Help:      "Wall time of a full aggregation run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	})
	r.storedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stored_events",
		Help:      "Rows in the event store after the last run",
	})
	r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "API requests by route and status code",
	}, []string{"route", "code"})

	r.registry.MustRegister(
		r.eventsFetched, r.eventsWritten, r.eventsFailed, r.fallbacks,
		r.lastRun, r.runDuration, r.storedEvents, r.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveSource(result ports.SourceResult, report ports.UpsertReport, finishedAt time.Time) {
	r.eventsFetched.WithLabelValues(result.Source).Add(float64(len(result.Events)))
	r.eventsWritten.WithLabelValues(result.Source).Add(float64(report.Written))
	r.eventsFailed.WithLabelValues(result.Source).Add(float64(report.Failed))
	if result.FallbackUsed {
		r.fallbacks.WithLabelValues(result.Source).Inc()
	}
	r.lastRun.WithLabelValues(result.Source).Set(float64(finishedAt.Unix()))
}

func (r *Recorder) ObserveRun(duration time.Duration, stored int64) {
	r.runDuration.Observe(duration.Seconds())
	r.storedEvents.Set(float64(stored))
}

func (r *Recorder) ObserveRequest(route string, code string) {
	r.httpRequests.WithLabelValues(route, code).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
