// Package metrics exposes prometheus counters for the ingest and query
// paths. The collectors are process-global; both paths share one registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	// EventsIngested counts stored events by kind
	// (onboarding, tutorial, play, survey).
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engagement",
		Name:      "events_ingested_total",
		Help:      "Events accepted and stored, by event kind.",
	}, []string{"kind"})

	// EventsRejected counts ingest rejections by kind and reason.
	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engagement",
		Name:      "events_rejected_total",
		Help:      "Events rejected at ingest, by event kind and reason.",
	}, []string{"kind", "reason"})

	// QueriesServed counts analytics reads by endpoint.
	QueriesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engagement",
		Name:      "queries_total",
		Help:      "Analytics queries served, by endpoint.",
	}, []string{"endpoint"})

	// CacheHits counts overview payloads served from the read cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "engagement",
		Name:      "cache_hits_total",
		Help:      "Dashboard payloads served from the read cache.",
	})
)

// Handler adapts the prometheus exposition handler to gin.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
