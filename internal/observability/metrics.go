package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	requestsTotal         *prometheus.CounterVec
	latencySeconds        *prometheus.HistogramVec
	submissionsTotal      *prometheus.CounterVec
	guardTimeoutsTotal    prometheus.Counter
	ingestBatchSize       *prometheus.HistogramVec
	flushDurationSeconds  prometheus.Histogram
	flushRowsTotal        *prometheus.CounterVec
	leaderboardRecalcs    prometheus.Counter
	bufferedRows          *prometheus.GaugeVec
)

// RegisterMetrics initialises the Prometheus collectors for the play core.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "play_requests_total",
			Help: "Total number of play API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "play_latency_seconds",
			Help:    "Latency distribution for play API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "play_submissions_total",
			Help: "Evaluated submissions by verdict.",
		}, []string{"verdict"})

		guardTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "play_guard_timeouts_total",
			Help: "Guard acquisitions that exceeded their wait budget.",
		})

		ingestBatchSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "play_ingest_batch_size",
			Help:    "Event count per applied ingestion batch.",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"stream"})

		flushDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "play_flush_duration_seconds",
			Help:    "Duration of buffer flush cycles.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})

		flushRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "play_flush_rows_total",
			Help: "Rows persisted from the write buffer by table.",
		}, []string{"table"})

		leaderboardRecalcs = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "play_leaderboard_recalculations_total",
			Help: "Completed leaderboard recomputations.",
		})

		bufferedRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "play_buffered_rows",
			Help: "Rows currently waiting in the write buffer by table.",
		}, []string{"table"})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			submissionsTotal,
			guardTimeoutsTotal,
			ingestBatchSize,
			flushDurationSeconds,
			flushRowsTotal,
			leaderboardRecalcs,
			bufferedRows,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Submissions exposes the per-verdict submission counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// GuardTimeouts exposes the guard contention counter.
func GuardTimeouts() prometheus.Counter {
	RegisterMetrics()
	return guardTimeoutsTotal
}

// IngestBatchSize exposes the ingestion batch size histogram.
func IngestBatchSize() *prometheus.HistogramVec {
	RegisterMetrics()
	return ingestBatchSize
}

// FlushDuration exposes the flush cycle duration histogram.
func FlushDuration() prometheus.Histogram {
	RegisterMetrics()
	return flushDurationSeconds
}

// FlushRows exposes the flushed row counter.
func FlushRows() *prometheus.CounterVec {
	RegisterMetrics()
	return flushRowsTotal
}

// LeaderboardRecalcs exposes the recomputation counter.
func LeaderboardRecalcs() prometheus.Counter {
	RegisterMetrics()
	return leaderboardRecalcs
}

// BufferedRows exposes the write buffer depth gauge.
func BufferedRows() *prometheus.GaugeVec {
	RegisterMetrics()
	return bufferedRows
}
