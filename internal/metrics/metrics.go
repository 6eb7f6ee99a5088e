// Package metrics holds the Prometheus instruments the bot updates during
// operation, served at /metrics in text exposition format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Signals counts inbound signals by action and outcome status.
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_signals_total",
			Help: "Inbound signals by action and outcome",
		},
		[]string{"action", "status"},
	)

	// Orders counts orders submitted to the exchange.
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_orders_total",
			Help: "Orders submitted by side and type",
		},
		[]string{"side", "type"},
	)

	// Reprices counts stale orders that were canceled and re-quoted.
	Reprices = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ladder_order_reprices_total",
			Help: "Stale orders canceled and re-submitted at a new level",
		},
	)

	// ReconcilePasses counts completed reconciliation passes.
	ReconcilePasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ladder_reconcile_passes_total",
			Help: "Completed reconciliation passes",
		},
	)

	// ReconcileErrors counts per-symbol reconciliation failures.
	ReconcileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_reconcile_errors_total",
			Help: "Per-symbol reconciliation step failures",
		},
		[]string{"symbol"},
	)

	// Equity is the last observed quote-asset equity.
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ladder_equity",
			Help: "Quote asset equity",
		},
	)

	// OpenLots is the number of open lots across all symbols.
	OpenLots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ladder_open_lots",
			Help: "Open lots across all symbols",
		},
	)

	// PendingOrders is the number of in-flight orders.
	PendingOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ladder_pending_orders",
			Help: "In-flight orders awaiting fill or cancellation",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Signals,
		Orders,
		Reprices,
		ReconcilePasses,
		ReconcileErrors,
		Equity,
		OpenLots,
		PendingOrders,
	)
}
