package metrics

import "github.com/prometheus/client_golang/prometheus"

// ResponseCacheTotal counts response-cache lookups by result ("hit"/"miss").
// Passed explicitly into the cache so tests can run with a nil counter.
var ResponseCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "partdex",
		Name:      "response_cache_total",
		Help:      "Response cache lookups by result",
	},
	[]string{"result"},
)

// RegisterCacheMetrics registers the cache metrics. Called once from the
// composition root; no init() so tests stay registry-clean.
func RegisterCacheMetrics() {
	prometheus.MustRegister(ResponseCacheTotal)
}
