package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics describes one CLI run for the node exporter textfile
// collector.
type runMetrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	stays       *prometheus.GaugeVec
	invalid     *prometheus.GaugeVec
	resultRows  *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stay_report_runs_total",
			Help: "Report runs by mode and outcome.",
		}, []string{"mode", "status"}),
		stays: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stay_report_stays",
			Help: "Stay rows read from the input.",
		}, []string{"mode", "detention_type"}),
		invalid: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stay_report_stays_without_entry",
			Help: "Stay rows without a usable entry date for the detention type.",
		}, []string{"mode", "detention_type"}),
		resultRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stay_report_result_rows",
			Help: "Values produced by the run.",
		}, []string{"mode", "detention_type"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stay_report_run_duration_seconds",
			Help: "Wall time of the run.",
		}, []string{"mode"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stay_report_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
	m.registry.MustRegister(m.runs, m.stays, m.invalid, m.resultRows, m.duration, m.lastSuccess)
	return m
}

func (m *runMetrics) observe(report Report, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runs.WithLabelValues(report.Mode, status).Inc()
	m.duration.WithLabelValues(report.Mode).Set(elapsed.Seconds())
	if err != nil {
		return
	}
	m.stays.WithLabelValues(report.Mode, report.DetentionType).Set(float64(report.TotalRows))
	m.invalid.WithLabelValues(report.Mode, report.DetentionType).Set(float64(report.InvalidRows))
	m.resultRows.WithLabelValues(report.Mode, report.DetentionType).Set(float64(len(report.Rows)))
	m.lastSuccess.SetToCurrentTime()
}

func (m *runMetrics) write(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
