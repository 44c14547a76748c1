package repository

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lastReplicationTimestamp is a Gauge that captures the timestamp of the
	// last successful replication
	lastReplicationTimestamp *prometheus.GaugeVec
	// replicationCount is a Counter vector of replication runs
	replicationCount *prometheus.CounterVec
	// replicationLatency is a Histogram vector that keeps track of
	// replication run durations
	replicationLatency *prometheus.HistogramVec
	// resolvedConflictsCount is a Counter vector of conflicted paths
	// resolved by the keep-ours policy
	resolvedConflictsCount *prometheus.CounterVec
)

// EnableMetrics will enable metrics collection for replication runs.
// Available metrics are...
//   - git_last_replication_timestamp - (tags: repo)
//     A Gauge that captures the Timestamp of the last successful replication per repo.
//   - git_replication_count - (tags: repo,success)
//     A Counter for each replication run, incremented with each run and tagged with the result (success=true|false)
//   - git_replication_latency_seconds - (tags: repo)
//     A Histogram that keeps track of the replication latency per repo.
//   - git_replication_resolved_conflicts_count - (tags: repo,remote)
//     A Counter for each conflicted path resolved by discarding the remote's change.
func EnableMetrics(metricsNamespace string, registerer prometheus.Registerer) {
	lastReplicationTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "git_last_replication_timestamp",
		Help:      "Timestamp of the last successful replication",
	},
		[]string{
			// name of the repository
			"repo",
		},
	)

	replicationCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "git_replication_count",
		Help:      "Count of replication runs",
	},
		[]string{
			// name of the repository
			"repo",
			// Whether the run was successful or not
			"success",
		},
	)

	replicationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "git_replication_latency_seconds",
		Help:      "Latency for replication runs",
		Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 90, 120, 150, 300},
	},
		[]string{
			// name of the repository
			"repo",
		},
	)

	resolvedConflictsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "git_replication_resolved_conflicts_count",
		Help:      "Count of conflicted paths resolved by discarding the remote's change",
	},
		[]string{
			// name of the repository
			"repo",
			// name of the remote whose change was discarded
			"remote",
		},
	)

	registerer.MustRegister(
		lastReplicationTimestamp,
		replicationCount,
		replicationLatency,
		resolvedConflictsCount,
	)
}

// recordReplication records a replication run attempt by updating all
// the relevant metrics
func recordReplication(repo string, success bool) {
	// if metrics not enabled return
	if lastReplicationTimestamp == nil || replicationCount == nil {
		return
	}
	if success {
		lastReplicationTimestamp.With(prometheus.Labels{
			"repo": repo,
		}).Set(float64(time.Now().Unix()))
	}
	replicationCount.With(prometheus.Labels{
		"repo":    repo,
		"success": strconv.FormatBool(success),
	}).Inc()
}

func updateReplicationLatency(repo string, start time.Time) {
	// if metrics not enabled return
	if replicationLatency == nil {
		return
	}
	replicationLatency.WithLabelValues(repo).Observe(time.Since(start).Seconds())
}

func recordResolvedConflicts(repo, remote string, count int) {
	// if metrics not enabled return
	if resolvedConflictsCount == nil {
		return
	}
	resolvedConflictsCount.With(prometheus.Labels{
		"repo":   repo,
		"remote": remote,
	}).Add(float64(count))
}
