package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Market data metrics
	providerRequests  *prometheus.CounterVec
	quoteCache        *prometheus.CounterVec
	providersExhaust  prometheus.Counter
	sentimentFetchErr prometheus.Counter

	// Analysis metrics
	analysesTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	reportsArchived  *prometheus.CounterVec
	jobsActive       *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Market data metrics
	r.providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_provider_requests_total",
			Help: "Provider requests by outcome (success, error, rate_limited)",
		},
		[]string{"provider", "outcome"},
	)
	r.quoteCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_quote_cache_total",
			Help: "Quote cache lookups by result",
		},
		[]string{"result"},
	)
	r.providersExhaust = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_providers_exhausted_total",
			Help: "Quote requests for which every provider failed",
		},
	)
	r.sentimentFetchErr = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_sentiment_fetch_errors_total",
			Help: "News fetches that failed during sentiment analysis",
		},
	)

	// Analysis metrics
	r.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_analyses_total",
			Help: "Portfolio analyses by status",
		},
		[]string{"status"},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_analysis_duration_seconds",
			Help:    "Portfolio analysis duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_reports_archived_total",
			Help: "Report archive writes by status",
		},
		[]string{"status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "folio_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.providerRequests)
	reg.MustRegister(r.quoteCache)
	reg.MustRegister(r.providersExhaust)
	reg.MustRegister(r.sentimentFetchErr)
	reg.MustRegister(r.analysesTotal)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.reportsArchived)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records one served request. route is the matched pattern,
// never the raw path.
func (r *Registry) RecordRequest(method, route string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, route, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordProviderRequest records one provider call outcome.
func (r *Registry) RecordProviderRequest(provider, outcome string) {
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordQuoteCache records a quote cache lookup.
func (r *Registry) RecordQuoteCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.quoteCache.WithLabelValues(result).Inc()
}

// RecordProvidersExhausted records a quote no provider could serve.
func (r *Registry) RecordProvidersExhausted() {
	r.providersExhaust.Inc()
}

// RecordSentimentFetchError records a failed news fetch.
func (r *Registry) RecordSentimentFetchError() {
	r.sentimentFetchErr.Inc()
}

// RecordAnalysis records a finished portfolio analysis.
func (r *Registry) RecordAnalysis(status string, duration float64) {
	r.analysesTotal.WithLabelValues(status).Inc()
	r.analysisDuration.Observe(duration)
}

// RecordArchive records a report archive write.
func (r *Registry) RecordArchive(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	r.reportsArchived.WithLabelValues(status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
