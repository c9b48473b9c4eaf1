package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WalletQueueLength tracks the number of wallets in the queue
	WalletQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lptrack_wallet_queue_length",
		Help: "The number of wallets currently in the queue",
	})

	// WorkersActive tracks the number of active workers
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lptrack_workers_active",
		Help: "The number of workers currently active",
	})

	// RPCRequestsTotal tracks RPC requests by status
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lptrack_rpc_requests_total",
			Help: "The total number of RPC requests",
		},
		[]string{"status"},
	)

	// RPCEndpointHealth tracks RPC endpoint health
	RPCEndpointHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lptrack_rpc_endpoint_health",
			Help: "Health status of RPC endpoints (1 = healthy, 0 = unhealthy)",
		},
		[]string{"endpoint"},
	)

	// TransactionsClassified tracks classified transactions by event kind
	TransactionsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lptrack_transactions_classified_total",
			Help: "The total number of transactions classified, by event kind",
		},
		[]string{"kind"},
	)

	// ValuationsTotal tracks position valuations by strategy and status
	ValuationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lptrack_valuations_total",
			Help: "The total number of position valuations, by winning strategy",
		},
		[]string{"strategy", "status"},
	)

	// WalletReconcileSeconds tracks time taken to reconcile wallets
	WalletReconcileSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lptrack_wallet_reconcile_seconds",
		Help:    "Time taken to reconcile a wallet in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
	})

	// DatabaseOperations tracks database operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lptrack_database_operations_total",
			Help: "The total number of database operations",
		},
		[]string{"operation", "status"},
	)
)

// RecordRPCRequest records an RPC request with the given status
func RecordRPCRequest(status string) {
	RPCRequestsTotal.WithLabelValues(status).Inc()
}

// SetRPCEndpointHealth sets the health status of an RPC endpoint
func SetRPCEndpointHealth(endpoint string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	RPCEndpointHealth.WithLabelValues(endpoint).Set(value)
}

// RecordClassification records a classified transaction by event kind
func RecordClassification(kind string) {
	TransactionsClassified.WithLabelValues(kind).Inc()
}

// RecordValuation records a position valuation by winning strategy and status
func RecordValuation(strategy, status string) {
	ValuationsTotal.WithLabelValues(strategy, status).Inc()
}

// RecordWalletReconcile records the time taken to reconcile a wallet
func RecordWalletReconcile(duration float64) {
	WalletReconcileSeconds.Observe(duration)
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}
