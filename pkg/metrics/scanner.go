package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scantrack"

// ScannerMetrics covers the intake path, the ledger and the overdue monitor. A nil
// *ScannerMetrics is valid and records nothing.
type ScannerMetrics struct {
	scans       *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	sessions    *prometheus.CounterVec
	overdue     prometheus.Gauge
	checkedOut  prometheus.Gauge
	ledgerDrift prometheus.Gauge
	serialBytes prometheus.Counter
}

func NewScannerMetrics(reg prometheus.Registerer) *ScannerMetrics {
	if reg == nil {
		return &ScannerMetrics{}
	}
	m := &ScannerMetrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Transactions recorded, by input source and action.",
		}, []string{"source", "action"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_dropped_total",
			Help:      "Tokens discarded before reaching the ledger.",
		}, []string{"source", "reason"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Scan session state transitions.",
		}, []string{"to"}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_items",
			Help:      "Items overdue at the last monitor run.",
		}),
		checkedOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checked_out_items",
			Help:      "Items currently checked out according to the ledger cache.",
		}),
		ledgerDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_drift_items",
			Help:      "Barcodes where the ledger cache disagrees with the log at the last audit.",
		}),
		serialBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serial_bytes_read_total",
			Help:      "Raw bytes read from the serial scanner.",
		}),
	}
	reg.MustRegister(m.scans, m.dropped, m.sessions, m.overdue, m.checkedOut, m.ledgerDrift, m.serialBytes)
	return m
}

func (m *ScannerMetrics) IncScan(source, action string) {
	if m == nil || m.scans == nil {
		return
	}
	m.scans.WithLabelValues(normalizeLabel(source), normalizeLabel(action)).Inc()
}

func (m *ScannerMetrics) IncDropped(source, reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(source), normalizeLabel(reason)).Inc()
}

func (m *ScannerMetrics) IncSessionTransition(to string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *ScannerMetrics) SetOverdue(n int) {
	if m == nil || m.overdue == nil {
		return
	}
	m.overdue.Set(float64(n))
}

func (m *ScannerMetrics) SetCheckedOut(n int) {
	if m == nil || m.checkedOut == nil {
		return
	}
	m.checkedOut.Set(float64(n))
}

func (m *ScannerMetrics) SetLedgerDrift(n int) {
	if m == nil || m.ledgerDrift == nil {
		return
	}
	m.ledgerDrift.Set(float64(n))
}

func (m *ScannerMetrics) AddSerialBytes(n int) {
	if m == nil || m.serialBytes == nil || n <= 0 {
		return
	}
	m.serialBytes.Add(float64(n))
}
