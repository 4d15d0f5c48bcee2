package conversation

import "github.com/prometheus/client_golang/prometheus"

var partialFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_app_sync_partial_failures_total",
		Help: "Multi-write operations that left summaries out of sync, by operation and stage.",
	},
	[]string{"operation", "stage"},
)

func init() {
	prometheus.MustRegister(partialFailures)
}
