package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Credential lifecycle metrics
	CredentialRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerchat_credential_refreshes_total",
			Help: "Total number of credential token refreshes",
		},
		[]string{"identity", "status"},
	)

	CredentialValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerchat_credential_validations_total",
			Help: "Total number of credential token validations",
		},
		[]string{"identity", "status"},
	)

	// Posting loop metrics
	PostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerchat_posts_total",
			Help: "Total number of outbound chat messages",
		},
		[]string{"identity", "status"},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerchat_cycles_total",
			Help: "Total number of posting cycles by outcome",
		},
		[]string{"outcome"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickerchat_cycle_duration_seconds",
			Help:    "Posting cycle execution time in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	// Symbol store metrics
	SymbolStoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickerchat_symbol_store_size",
			Help: "Current number of identifiers in the symbol store",
		},
	)

	SymbolRefills = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerchat_symbol_refills_total",
			Help: "Total number of symbol store refills by trigger",
		},
		[]string{"trigger", "status"},
	)

	// Market data metrics
	MarketRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerchat_market_requests_total",
			Help: "Total number of market data requests",
		},
		[]string{"feed", "status"},
	)
)
