// Package metrics centralises the Prometheus collectors shared by the
// fetch pipeline and the agent loop, following the same one-struct,
// promauto-registered layout the teacher repo uses for its own
// application metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector this module exposes. All fields are
// safe for concurrent use, as is every *Vec type from client_golang.
type Metrics struct {
	// FetchItemsTotal counts fetch pipeline items by kind and outcome
	// (downloaded|skipped|failed).
	FetchItemsTotal *prometheus.CounterVec

	// FetchUsersTotal counts fetch pipeline user lookups by outcome
	// (fetched|skipped|failed).
	FetchUsersTotal *prometheus.CounterVec

	// AgentIterations records how many completion iterations a
	// session consumed before terminating, by provider and outcome
	// (completed|iteration_cap).
	AgentIterations *prometheus.HistogramVec

	// ToolDuration measures tool dispatch latency in seconds, by tool
	// name and status (completed|failed).
	ToolDuration *prometheus.HistogramVec
}

var (
	once     sync.Once
	instance *Metrics
)

// Default returns the process-wide Metrics instance, registering its
// collectors with the default Prometheus registry on first call.
// agentloop.New and fetchpipeline.New both call it; repeated calls
// return the same instance rather than re-registering.
func Default() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			FetchItemsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_fetch_items_total",
					Help: "Total number of fetch pipeline items processed, by kind and outcome.",
				},
				[]string{"kind", "outcome"},
			),
			FetchUsersTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_fetch_users_total",
					Help: "Total number of fetch pipeline user lookups processed, by outcome.",
				},
				[]string{"outcome"},
			),
			AgentIterations: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agentcore_agent_loop_iterations",
					Help:    "Completion iterations consumed per session before it terminated.",
					Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 30},
				},
				[]string{"provider", "outcome"},
			),
			ToolDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agentcore_tool_execution_duration_seconds",
					Help:    "Tool dispatch latency in seconds, by tool name and status.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool_name", "status"},
			),
		}
	})
	return instance
}
