package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "member_import",
		Name:      "rows_total",
		Help:      "Imported roster rows broken down by outcome.",
	}, []string{"action"})

	chunksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "member_import",
		Name:      "chunks_total",
		Help:      "Chunk jobs finished broken down by final chunk status.",
	}, []string{"status"})

	chunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "member_import",
		Name:      "chunk_duration_seconds",
		Help:      "Wall-clock time spent processing one chunk.",
		Buckets: []float64{
			0.1, 0.5, 1, 2, 5,
			10, 30, 60, 120, 300,
			600, 1800,
		},
	})

	identityRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "member_import",
		Name:      "identity_requests_total",
		Help:      "Identity provider account requests broken down by result.",
	}, []string{"result"})

	queueRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "member_import",
		Name:      "queue_retries_total",
		Help:      "Chunk jobs scheduled for another attempt.",
	}, []string{"queue"})
)

func RowProcessed(action string) {
	rowsProcessed.WithLabelValues(action).Inc()
}

func ChunkFinished(status string, d time.Duration) {
	chunksFinished.WithLabelValues(status).Inc()
	chunkDuration.Observe(d.Seconds())
}

func IdentityRequest(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	identityRequests.WithLabelValues(result).Inc()
}

func QueueRetry(queue string) {
	queueRetries.WithLabelValues(queue).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
