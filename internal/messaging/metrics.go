package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Silent drops never answer the sender, so the counters here are the only
// place forged or stale traffic is visible at all.
var (
	datagramsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridverse_datagrams_handled_total",
		Help: "Datagrams that passed the identity guard and reached a handler.",
	}, []string{"type"})

	datagramsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridverse_datagrams_dropped_total",
		Help: "Datagrams dropped before reaching a handler, by reason.",
	}, []string{"reason"})
)

const (
	dropNoCircuit   = "no_circuit"
	dropIdentity    = "identity_mismatch"
	dropRateLimited = "rate_limited"
	dropUnhandled   = "unhandled_type"
)
