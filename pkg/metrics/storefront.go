package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the storefront counters.
const (
	OutcomeSuccess      = "success"
	OutcomeValidation   = "validation_failed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeTransport    = "transport_failed"
	OutcomeRejected     = "in_flight_rejected"
)

// StorefrontMetrics instruments checkout submissions, admin inventory operations,
// catalog refreshes and collaborator latency.
type StorefrontMetrics struct {
	submissions  *prometheus.CounterVec
	adminOps     *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	collaborator *prometheus.HistogramVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_submissions_total",
		Help: "Order submission attempts by outcome.",
	}, []string{"outcome"})
	adminOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_inventory_operations_total",
		Help: "Admin inventory operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_refreshes_total",
		Help: "Catalog snapshot refreshes by outcome.",
	}, []string{"outcome"})
	collaborator := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_collaborator_call_seconds",
		Help:    "Latency of backend collaborator calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"call"})
	reg.MustRegister(submissions, adminOps, refreshes, collaborator)
	return &StorefrontMetrics{
		submissions:  submissions,
		adminOps:     adminOps,
		refreshes:    refreshes,
		collaborator: collaborator,
	}
}

// IncSubmission counts one order submission attempt.
func (m *StorefrontMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInventoryOp counts one admin save/sync/login attempt.
func (m *StorefrontMetrics) IncInventoryOp(operation, outcome string) {
	if m == nil || m.adminOps == nil {
		return
	}
	m.adminOps.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncRefresh counts one catalog refresh.
func (m *StorefrontMetrics) IncRefresh(outcome string) {
	if m == nil || m.refreshes == nil {
		return
	}
	m.refreshes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCall records the latency of a collaborator call.
func (m *StorefrontMetrics) ObserveCall(call string, duration time.Duration) {
	if m == nil || m.collaborator == nil {
		return
	}
	m.collaborator.WithLabelValues(normalizeLabel(call)).Observe(duration.Seconds())
}
