// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fuellog"

// Suggestion outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeFallback    = "fallback"
	OutcomeDataFormat  = "data_format"
	OutcomeSchema      = "schema"
	OutcomeTimeout     = "timeout"
	OutcomeValidation  = "validation"
	OutcomeUnavailable = "unavailable"
)

// UnknownFuelType labels price updates for names outside the fuel set.
const UnknownFuelType = "unknown"

// Metrics groups the collectors registered on one registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	EntriesCreated   prometheus.Counter
	EntryLiters      prometheus.Counter
	EntryAmount      prometheus.Counter
	PriceUpdates     *prometheus.CounterVec
	Suggestions      *prometheus.CounterVec
	PublishFailures  prometheus.Counter
	EntriesSynced    prometheus.Counter
	SyncFailures     prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	RateLimitRejects prometheus.Counter
	Suspicious       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EntriesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "entries", Name: "created_total",
			Help: "Fuel entries committed to the ledger.",
		}),
		EntryLiters: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "entries", Name: "liters_total",
			Help: "Liters recorded across committed entries.",
		}),
		EntryAmount: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "entries", Name: "amount_total",
			Help: "Sum of entry amounts.",
		}),
		PriceUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "prices", Name: "updates_total",
			Help: "Fuel price updates by fuel type and result.",
		}, []string{"fuel_type", "result"}),
		Suggestions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "suggestions", Name: "requests_total",
			Help: "Price suggestion requests by outcome.",
		}, []string{"outcome"}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "amqp", Name: "publish_failures_total",
			Help: "Entry sync messages that could not be published.",
		}),
		EntriesSynced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sheets", Name: "entries_synced_total",
			Help: "Entries exported to the spreadsheet.",
		}),
		SyncFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sheets", Name: "sync_failures_total",
			Help: "Failed spreadsheet exports.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route pattern, method and status class.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RateLimitRejects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		Suspicious: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "suspicious_requests_total",
			Help: "Requests matching a known probing pattern, by reason.",
		}, []string{"reason"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) EntryCreated(liters, amount float64) {
	if m == nil {
		return
	}
	m.EntriesCreated.Inc()
	m.EntryLiters.Add(liters)
	m.EntryAmount.Add(amount)
}

func (m *Metrics) PriceUpdated(fuelType string, found bool) {
	if m == nil {
		return
	}
	result := "updated"
	if !found {
		result = "miss"
	}
	m.PriceUpdates.WithLabelValues(fuelType, result).Inc()
}

func (m *Metrics) Suggestion(outcome string) {
	if m == nil {
		return
	}
	m.Suggestions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

func (m *Metrics) Synced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EntriesSynced.Add(float64(n))
}

func (m *Metrics) SyncFailed() {
	if m == nil {
		return
	}
	m.SyncFailures.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitRejects.Inc()
}

func (m *Metrics) SuspiciousRequest(reason string) {
	if m == nil {
		return
	}
	m.Suspicious.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one finished request. route is the matched pattern,
// not the raw path.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status/100)+"xx").Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
