// Package metrics provides Prometheus metrics for the CivicPulse service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal tracks report lifecycle transitions by action and outcome
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civicpulse",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of report lifecycle transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// TransitionConflictsTotal tracks transitions rejected by the state machine or row races
	TransitionConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civicpulse",
			Subsystem: "lifecycle",
			Name:      "conflicts_total",
			Help:      "Total number of transitions rejected with a conflict",
		},
		[]string{"action"},
	)

	// RefreshDuration tracks analytics refresh duration in seconds
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "civicpulse",
			Subsystem: "analytics",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of analytics fact refreshes in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// RefreshesTotal tracks analytics refreshes by outcome
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civicpulse",
			Subsystem: "analytics",
			Name:      "refreshes_total",
			Help:      "Total number of analytics fact refreshes by outcome",
		},
		[]string{"outcome"},
	)

	// FactsRefreshed tracks the number of fact rows written by the last refresh
	FactsRefreshed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "civicpulse",
			Subsystem: "analytics",
			Name:      "facts_rows",
			Help:      "Number of fact rows written by the last refresh",
		},
	)

	// QueryDuration tracks analytics query duration in seconds
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "civicpulse",
			Subsystem: "analytics",
			Name:      "query_duration_seconds",
			Help:      "Duration of analytics queries in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query"},
	)

	// EventsPublished tracks domain events published to the broker
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civicpulse",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of domain events published by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	// WebhookDeliveries tracks department webhook notifications
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civicpulse",
			Subsystem: "notify",
			Name:      "webhook_deliveries_total",
			Help:      "Total number of department webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)
)
