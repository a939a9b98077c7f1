package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests counts inbound gateway requests by operation, chain and status.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chaingate",
		Name:      "requests_total",
		Help:      "Inbound gateway requests by operation, chain and status.",
	}, []string{"operation", "chain", "status"})

	// Rotations counts endpoint rotations triggered by connect failures.
	Rotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chaingate",
		Name:      "endpoint_rotations_total",
		Help:      "Endpoint rotations triggered by connect failures.",
	}, []string{"chain"})

	// RPCCalls counts remote procedure calls issued over node sessions.
	RPCCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chaingate",
		Name:      "rpc_calls_total",
		Help:      "Remote procedure calls issued over node sessions.",
	}, []string{"method"})

	// RPCFailures counts remote procedure calls that returned an error.
	RPCFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chaingate",
		Name:      "rpc_failures_total",
		Help:      "Remote procedure calls that failed.",
	}, []string{"method"})

	// ChunkFailures counts batch fetch chunks that failed and were skipped.
	ChunkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chaingate",
		Name:      "batch_chunk_failures_total",
		Help:      "Batch object fetch chunks that failed and were skipped.",
	})
)
