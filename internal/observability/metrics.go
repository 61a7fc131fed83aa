package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceid",
		Name:      "match_duration_seconds",
		Help:      "Duration of population scans",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"operation"})

	PopulationSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceid",
		Name:      "population_size",
		Help:      "Number of enrolled identities in the last loaded snapshot",
	})

	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "lifecycle_transitions_total",
		Help:      "Identity lifecycle transitions by kind",
	}, []string{"transition"})

	BatchSubjects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "batch_subjects_total",
		Help:      "Batch recognition subjects by result",
	}, []string{"result"})

	CandidatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "candidates_skipped_total",
		Help:      "Stored feature vectors skipped because they could not be compared",
	})

	GuestDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "guest_duplicates_total",
		Help:      "Guest identities found to match another guest above threshold",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceid",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceid",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
