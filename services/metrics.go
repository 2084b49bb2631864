package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomrouter_requests_total",
		Help: "Chat requests routed, by classified intent",
	}, []string{"intent"})

	envelopesReturned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomrouter_envelopes_total",
		Help: "Response envelopes returned, by type",
	}, []string{"type"})

	artifactsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomrouter_artifacts_total",
		Help: "Artifacts stored, by kind",
	}, []string{"kind"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atomrouter_provider_seconds",
		Help:    "Text generation provider latency",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
	}, []string{"provider", "outcome"})
)
