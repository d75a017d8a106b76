package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records settlement outcomes and side effects.
type CheckoutMetrics struct {
	duration      *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	compensations *prometheus.CounterVec
	persistRetry  prometheus.Counter
	notifications *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_settle_duration_seconds",
		Help:    "Duration of checkout settlement attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_settle_total",
		Help: "Checkout settlement attempts by outcome code.",
	}, []string{"outcome"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_compensations_total",
		Help: "Stock re-increments issued after a failed settlement, by result.",
	}, []string{"result"})
	persistRetry := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_persist_retries_total",
		Help: "Order persistence attempts that were retried.",
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_notifications_total",
		Help: "Order confirmation notifications by result.",
	}, []string{"result"})
	reg.MustRegister(duration, outcomes, compensations, persistRetry, notifications)
	return &CheckoutMetrics{
		duration:      duration,
		outcomes:      outcomes,
		compensations: compensations,
		persistRetry:  persistRetry,
		notifications: notifications,
	}
}

// ObserveSettle records the duration and outcome of one settlement attempt.
func (c *CheckoutMetrics) ObserveSettle(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
	c.outcomes.WithLabelValues(label).Inc()
}

// IncCompensation counts one re-increment, labelled ok or failed.
func (c *CheckoutMetrics) IncCompensation(ok bool) {
	if c == nil || c.compensations == nil {
		return
	}
	c.compensations.WithLabelValues(resultLabel(ok)).Inc()
}

// IncPersistRetry counts one retried persistence attempt.
func (c *CheckoutMetrics) IncPersistRetry() {
	if c == nil || c.persistRetry == nil {
		return
	}
	c.persistRetry.Inc()
}

// IncNotification counts one notification attempt.
func (c *CheckoutMetrics) IncNotification(ok bool) {
	if c == nil || c.notifications == nil {
		return
	}
	c.notifications.WithLabelValues(resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
