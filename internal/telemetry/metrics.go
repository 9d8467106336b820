package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	TransitionCommits    = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_transitions_committed_total", Help: "Transitions committed with an audit entry"})
	TransitionNoops      = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_transitions_noop_total", Help: "Same-status requests accepted without an audit entry"})
	InvalidTransitions   = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_transitions_invalid_total", Help: "Requests rejected by the transition table"})
	UnauthorizedRequests = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_transitions_unauthorized_total", Help: "Requests rejected for actor role mismatch"})
	RecordsNotFound      = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_records_not_found_total", Help: "Requests referencing unknown records"})
	RateLimitRejects     = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_rate_limit_rejects_total", Help: "Transition requests rejected by the actor rate limiter"})
	SnapshotRefreshes    = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_snapshot_refreshes_total", Help: "Dashboard snapshot refresh runs"})
	ArchivedEntries      = prometheus.NewCounter(prometheus.CounterOpts{Name: "pipeline_audit_entries_archived_total", Help: "Audit entries exported to cold storage"})
	FunnelDepth          = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "pipeline_funnel_depth", Help: "Records currently at each pipeline status"}, []string{"status"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			TransitionCommits,
			TransitionNoops,
			InvalidTransitions,
			UnauthorizedRequests,
			RecordsNotFound,
			RateLimitRejects,
			SnapshotRefreshes,
			ArchivedEntries,
			FunnelDepth,
		)
	})
	return promhttp.Handler()
}
