package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	repositoryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainrelay7000",
		Subsystem: "clickhouse_repository",
		Name:      "operations_total",
		Help:      "Count of repository operations.",
	}, []string{"operation", "network", "status"})
	repositoryOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainrelay7000",
		Subsystem: "clickhouse_repository",
		Name:      "operation_duration_seconds",
		Help:      "Duration of repository operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30},
	}, []string{"operation", "network", "status"})
)

// Repository tracks metrics for ClickHouse repository operations.
type Repository struct {
	network string
}

// NewRepository creates a Repository metrics collector for one network.
func NewRepository(network string) *Repository {
	if network == "" {
		network = "unknown"
	}
	return &Repository{network: network}
}

// Observe records duration and status of a repository operation.
func (m Repository) Observe(operation string, err error, started time.Time) {
	status := statusLabel(err)
	repositoryOperationsTotal.WithLabelValues(operation, m.network, status).Inc()
	repositoryOperationDuration.WithLabelValues(operation, m.network, status).
		Observe(time.Since(started).Seconds())
}
