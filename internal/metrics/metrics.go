// Package metrics holds the Prometheus collectors for dataset loads and the
// HTTP API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	LoadsTotal      *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	RowsSkipped     prometheus.Counter
	Records         prometheus.Gauge
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asaankisaan_dataset_loads_total",
				Help: "Dataset loads by result",
			},
			[]string{"result"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "asaankisaan_dataset_load_duration_seconds",
				Help:    "Time to fetch and parse the price dataset",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		RowsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "asaankisaan_rows_skipped_total",
				Help: "Dataset rows dropped because they could not be parsed",
			},
		),
		Records: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "asaankisaan_records",
				Help: "Price records in the serving snapshot",
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asaankisaan_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asaankisaan_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
	reg.MustRegister(
		m.LoadsTotal,
		m.LoadDuration,
		m.RowsSkipped,
		m.Records,
		m.RequestsTotal,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveLoad records one load attempt.
func (m *Metrics) ObserveLoad(ok bool, took time.Duration, records, skipped int) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(took.Seconds())
	if !ok {
		m.LoadsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.LoadsTotal.WithLabelValues("success").Inc()
	m.RowsSkipped.Add(float64(skipped))
	m.Records.Set(float64(records))
}

func (m *Metrics) ObserveRequest(route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
