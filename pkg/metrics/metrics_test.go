package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)
	metrics.ObserveSettle("settled", 250*time.Millisecond)
	metrics.ObserveSettle("", 10*time.Millisecond)
	metrics.IncCompensation(true)
	metrics.IncCompensation(false)
	metrics.IncCompensation(false)
	metrics.IncNotification(false)
	metrics.IncPersistRetry()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_settle_total", "outcome", "settled"); err != nil {
		t.Fatalf("fetch outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected settled=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_settle_total", "outcome", "unknown"); err != nil {
		t.Fatalf("fetch unknown outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_compensations_total", "result", "failed"); err != nil {
		t.Fatalf("fetch compensations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected failed compensations=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_notifications_total", "result", "failed"); err != nil {
		t.Fatalf("fetch notifications: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed notifications=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "checkout_settle_duration_seconds", "outcome", "settled"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	metrics.IncPublished("order_settled")
	metrics.IncFailed("order_settled")
	metrics.IncTerminal("order_status_changed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_published_total", "event_type", "order_settled"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_terminal_total", "event_type", "order_status_changed"); err != nil || got != 1 {
		t.Fatalf("expected terminal=1, got %f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var checkout *CheckoutMetrics
	checkout.ObserveSettle("settled", time.Second)
	checkout.IncCompensation(true)
	checkout.IncNotification(true)
	checkout.IncPersistRetry()

	unregistered := NewCheckoutMetrics(nil)
	unregistered.ObserveSettle("settled", time.Second)

	var outbox *OutboxMetrics
	outbox.IncPublished("x")
	NewOutboxMetrics(nil).IncFailed("x")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
