package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	feedLoadsTotal        *prometheus.CounterVec
	likeTogglesTotal      *prometheus.CounterVec
	noteUploadsTotal      *prometheus.CounterVec
	noteUploadRejected    *prometheus.CounterVec
	noteUploadLatencySecs prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslink_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campuslink_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslink_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		feedLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslink_feed_loads_total",
			Help: "Feed loads partitioned by cache outcome.",
		}, []string{"cache"})

		likeTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslink_like_toggles_total",
			Help: "Like toggles partitioned by resulting action.",
		}, []string{"action"})

		noteUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslink_note_uploads_total",
			Help: "Accepted note uploads partitioned by detected file type.",
		}, []string{"type"})

		noteUploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslink_note_upload_rejected_total",
			Help: "Rejected note uploads partitioned by reason.",
		}, []string{"reason"})

		noteUploadLatencySecs = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "campuslink_note_upload_latency_seconds",
			Help:    "Latency distribution for note uploads including storage.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			feedLoadsTotal,
			likeTogglesTotal,
			noteUploadsTotal,
			noteUploadRejected,
			noteUploadLatencySecs,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// FeedLoads exposes the feed load counter.
func FeedLoads() *prometheus.CounterVec {
	RegisterMetrics()
	return feedLoadsTotal
}

// LikeToggles exposes the like toggle counter.
func LikeToggles() *prometheus.CounterVec {
	RegisterMetrics()
	return likeTogglesTotal
}

// NoteUploads exposes the accepted upload counter.
func NoteUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return noteUploadsTotal
}

// NoteUploadRejected exposes the rejected upload counter.
func NoteUploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return noteUploadRejected
}

// NoteUploadLatency exposes the upload latency histogram.
func NoteUploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return noteUploadLatencySecs
}
