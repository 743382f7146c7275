package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestQueueMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewQueueMetrics(reg)

	metrics.IncJoin("account_opening", "ussd")
	metrics.IncCall()
	metrics.IncUSSDSession("join", "end")
	metrics.ObserveUSSDDuration("join", 120*time.Millisecond)
	metrics.IncPublish("ok")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "queue_tickets_joined_total", "service_type", "account_opening"); err != nil {
		t.Fatalf("fetch joins: %v", err)
	} else if got != 1 {
		t.Fatalf("expected joins=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "ussd_sessions_total", "flow", "join"); err != nil {
		t.Fatalf("fetch sessions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sessions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_publish_total", "result", "ok"); err != nil {
		t.Fatalf("fetch publishes: %v", err)
	} else if got != 1 {
		t.Fatalf("expected publishes=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "ussd_callback_duration_seconds", "flow", "join"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestQueueMetricsNilSafe(t *testing.T) {
	var metrics *QueueMetrics
	metrics.IncJoin("x", "y")
	metrics.IncCall()
	metrics.IncUSSDSession("x", "y")
	metrics.ObserveUSSDDuration("x", time.Second)
	metrics.IncPublish("ok")
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
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
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
