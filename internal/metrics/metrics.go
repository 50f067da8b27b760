// Package metrics exposes Prometheus collectors for the contact crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal                 *prometheus.CounterVec
	domainsTotal               *prometheus.CounterVec
	contactsFoundTotal         *prometheus.CounterVec
	batchWindowsTotal          prometheus.Counter
	activeDomains              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times, and every
// Observe function calls it.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_pages_total",
				Help: "Total number of pages fetched, labeled by site and outcome.",
			},
			[]string{"site", "status"},
		)

		domainsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_domains_total",
				Help: "Total number of domains crawled, labeled by outcome.",
			},
			[]string{"status"},
		)

		contactsFoundTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_contacts_found_total",
				Help: "Contacts found across finished domains, labeled by kind.",
			},
			[]string{"kind"},
		)

		batchWindowsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "contact_batch_windows_total",
				Help: "Total number of batch windows completed.",
			},
		)

		activeDomains = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "contact_active_domains",
				Help: "Number of domains currently being crawled.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contact_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObservePage counts one page outcome for site.
func ObservePage(site, status string) {
	Init()
	pagesTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveDomain counts one finished domain.
func ObserveDomain(status string) {
	Init()
	domainsTotal.WithLabelValues(status).Inc()
}

// ObserveContacts adds the contacts of one finished domain.
func ObserveContacts(emails, phones, people int) {
	Init()
	contactsFoundTotal.WithLabelValues("email").Add(float64(emails))
	contactsFoundTotal.WithLabelValues("phone").Add(float64(phones))
	contactsFoundTotal.WithLabelValues("person").Add(float64(people))
}

// ObserveBatchWindow counts one completed batch window.
func ObserveBatchWindow() {
	Init()
	batchWindowsTotal.Inc()
}

// AddActiveDomains moves the active domains gauge by delta.
func AddActiveDomains(delta int) {
	Init()
	activeDomains.Add(float64(delta))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
