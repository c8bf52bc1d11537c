package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMediaMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMediaMetrics(reg)

	metrics.IncOrphanCleanupFailure("episode_audio")
	metrics.IncEmailSent("show_approved")
	metrics.IncEmailFailure("show_rejected")
	metrics.IncMixcloudPublish("uploaded")
	metrics.IncStreamPlay("public")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	cases := []struct {
		name  string
		label string
		value string
	}{
		{"storage_orphan_cleanup_failure", "resource", "episode_audio"},
		{"email_sent", "template", "show_approved"},
		{"email_failure", "template", "show_rejected"},
		{"mixcloud_publish", "outcome", "uploaded"},
		{"episode_stream_plays", "visibility", "public"},
	}

	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.name, tc.label, tc.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", tc.name, got)
		}
	}
}

func TestMediaMetricsNilSafe(t *testing.T) {
	var metrics *MediaMetrics
	metrics.IncOrphanCleanupFailure("x")
	metrics.IncEmailSent("x")
	metrics.IncMixcloudPublish("x")

	empty := NewMediaMetrics(nil)
	empty.IncEmailFailure("x")
	empty.IncStreamPlay("x")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric family %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q with %s=%s not found", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
