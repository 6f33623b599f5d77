package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_state_transitions_total",
		Help: "Total number of order state transitions by target state",
	}, []string{"to_state"})

	InvalidTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_invalid_transitions_total",
		Help: "Total number of rejected order state transitions",
	})

	AutoQualityControlTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_auto_quality_control_total",
		Help: "Total number of orders promoted to quality control automatically",
	})

	ProductionUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_item_production_updates_total",
		Help: "Total number of line item production state updates by state",
	}, []string{"state"})

	PaymentsRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_registered_total",
		Help: "Total number of payments appended to the ledger",
	})

	PaymentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_rejected_total",
		Help: "Total number of rejected payments",
	}, []string{"reason"})

	DepositsRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deposits_registered_total",
		Help: "Total number of deposits recorded",
	})

	StatsCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stats_cache_hits_total",
		Help: "Total number of statistics served from cache",
	})

	StatsCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stats_cache_misses_total",
		Help: "Total number of statistics computed from storage",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
