package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tender_marketplace"

// Metrics holds the Prometheus collectors of the marketplace. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	TenderUnlocks      *prometheus.CounterVec
	BidsSubmitted      prometheus.Counter
	TendersAwarded     prometheus.Counter
	Extractions        *prometheus.CounterVec
	ExtractionAttempts *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TenderUnlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tender_unlocks_total",
				Help:      "Tender unlock attempts by result",
			},
			[]string{"result"},
		),
		BidsSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bids_submitted_total",
				Help:      "Bids moved to submitted",
			},
		),
		TendersAwarded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tenders_awarded_total",
				Help:      "Tenders awarded",
			},
		),
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Finished extractions by terminal status",
			},
			[]string{"status"},
		),
		ExtractionAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_attempts_total",
				Help:      "Queued extraction attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) UnlockRecorded(result string) {
	if m == nil {
		return
	}
	m.TenderUnlocks.WithLabelValues(result).Inc()
}

func (m *Metrics) BidSubmitted() {
	if m == nil {
		return
	}
	m.BidsSubmitted.Inc()
}

func (m *Metrics) TenderAwarded() {
	if m == nil {
		return
	}
	m.TendersAwarded.Inc()
}

func (m *Metrics) ExtractionFinished(status string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(status).Inc()
}

func (m *Metrics) ExtractionAttempt(result string) {
	if m == nil {
		return
	}
	m.ExtractionAttempts.WithLabelValues(result).Inc()
}

// Middleware counts requests and observes their duration per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			method := c.Request().Method
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()

			return nil
		}
	}
}
