package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	submissionsTotal   *prometheus.CounterVec
	reviewDecisionsVec *prometheus.CounterVec
	uploadsRejectedVec *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the assessment API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_requests_total",
			Help: "Total number of assessment API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_latency_seconds",
			Help:    "Latency distribution for assessment API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_submissions_submitted_total",
			Help: "Total number of submissions handed in, by resulting status.",
		}, []string{"status"})

		reviewDecisionsVec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_review_decisions_total",
			Help: "Total number of review decisions recorded, by decision.",
		}, []string{"decision"})

		uploadsRejectedVec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_uploads_rejected_total",
			Help: "Total number of rejected artifact uploads, by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, submissionsTotal, reviewDecisionsVec, uploadsRejectedVec)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// SubmissionsSubmitted exposes the counter for handed-in submissions.
func SubmissionsSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// ReviewDecisions exposes the counter for recorded review decisions.
func ReviewDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewDecisionsVec
}

// UploadsRejected exposes the counter for rejected uploads.
func UploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsRejectedVec
}
