package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/pifcsv/internal/core"
	"github.com/JonMunkholm/pifcsv/internal/service"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	conversions *prometheus.CounterVec
	records     prometheus.Counter
	diagnostics *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics registers the conversion collectors and a gauge reading the
// limiter's active slots.
func NewMetrics(limiter *service.Limiter) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pifcsv",
			Name:      "conversions_total",
			Help:      "Template conversions by result code (ok on success).",
		}, []string{"code"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pifcsv",
			Name:      "records_total",
			Help:      "Records produced by successful conversions.",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pifcsv",
			Name:      "diagnostics_total",
			Help:      "Non-fatal template diagnostics by code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pifcsv",
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting one template.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
	}

	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pifcsv",
		Name:      "conversions_active",
		Help:      "Conversions currently holding a limiter slot.",
	}, func() float64 { return float64(limiter.Active()) })

	m.registry.MustRegister(
		m.conversions, m.records, m.diagnostics, m.duration, active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records the outcome of one conversion.
func (m *Metrics) Observe(sum *service.Summary, err error) {
	if err != nil {
		m.conversions.WithLabelValues(core.MapError(err).Code).Inc()
		return
	}
	m.conversions.WithLabelValues("ok").Inc()
	m.records.Add(float64(sum.Records))
	m.duration.Observe(sum.Duration.Seconds())
	for _, d := range sum.Diagnostics {
		m.diagnostics.WithLabelValues(d.Code).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
