package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts authenticated ingestion requests.
	requestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of authenticated ingestion requests",
		},
	)

	// insertsTotal counts insert outcomes across all accumulators.
	insertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_inserts_total",
			Help: "Total number of record insert attempts by result",
		},
		[]string{"result"},
	)

	// unauthorizedTotal counts rejected password and token checks.
	unauthorizedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_unauthorized_total",
			Help: "Total number of unauthorized access attempts",
		},
	)
)
