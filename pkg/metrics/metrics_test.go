package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "overdue-check"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "scantrack_job_success_total", map[string]string{"job": job})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "scantrack_job_failure_total", map[string]string{"job": job})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	mf := findMetricFamily(mfs, "scantrack_job_duration_seconds")
	require.NotNil(t, mf)
	assert.Greater(t, mf.GetMetric()[0].GetHistogram().GetSampleSum(), 0.0)
}

func TestScannerMetricsLabelsAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScannerMetrics(reg)

	m.IncScan("keyboard", "check-out")
	m.IncScan("keyboard", "check-out")
	m.IncDropped("serial", "")
	m.SetOverdue(3)
	m.AddSerialBytes(12)
	m.AddSerialBytes(-1)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "scantrack_scans_total", map[string]string{"source": "keyboard", "action": "check-out"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "scantrack_tokens_dropped_total", map[string]string{"source": "serial", "reason": "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	overdue := findMetricFamily(mfs, "scantrack_overdue_items")
	require.NotNil(t, overdue)
	assert.Equal(t, 3.0, overdue.GetMetric()[0].GetGauge().GetValue())

	serial := findMetricFamily(mfs, "scantrack_serial_bytes_read_total")
	require.NotNil(t, serial)
	assert.Equal(t, 12.0, serial.GetMetric()[0].GetCounter().GetValue())
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *ScannerMetrics
	assert.NotPanics(t, func() {
		m.IncScan("keyboard", "check-in")
		m.SetLedgerDrift(1)
	})

	unregistered := NewCronJobMetrics(nil)
	assert.NotPanics(t, func() { unregistered.IncSuccess("job") })
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok {
			if v != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
