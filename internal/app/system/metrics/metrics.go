// Package metrics exposes Prometheus metrics for the HTTP API and the
// social-graph operations.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what stores and handlers use to count domain events.
// Nop satisfies it for tests.
type Recorder interface {
	PinCreated()
	PinSaved()
	PinUnsaved()
	UserFollowed()
	UserUnfollowed()
	CommentCreated()
	UserRegistered()
	LoginFailed()
}

// Collector is the Prometheus implementation of Recorder plus HTTP instrumentation.
type Collector struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pinhub_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pinhub_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pinhub_events_total",
			Help: "Domain events (pin_created, pin_saved, user_followed, ...).",
		}, []string{"event"}),
	}
	reg.MustRegister(c.requests, c.latency, c.events)
	return c
}

func (c *Collector) PinCreated()     { c.events.WithLabelValues("pin_created").Inc() }
func (c *Collector) PinSaved()       { c.events.WithLabelValues("pin_saved").Inc() }
func (c *Collector) PinUnsaved()     { c.events.WithLabelValues("pin_unsaved").Inc() }
func (c *Collector) UserFollowed()   { c.events.WithLabelValues("user_followed").Inc() }
func (c *Collector) UserUnfollowed() { c.events.WithLabelValues("user_unfollowed").Inc() }
func (c *Collector) CommentCreated() { c.events.WithLabelValues("comment_created").Inc() }
func (c *Collector) UserRegistered() { c.events.WithLabelValues("user_registered").Inc() }
func (c *Collector) LoginFailed()    { c.events.WithLabelValues("login_failed").Inc() }

// Middleware records request count and latency, labelled by the chi route
// pattern (not the raw path) to keep cardinality bounded.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// CountFunc returns current collection sizes, keyed by collection name.
type CountFunc func(ctx context.Context) map[string]int64

// RegisterCounts exposes fn's results as the gauge pinhub_documents{collection}.
// fn runs on each scrape.
func RegisterCounts(reg prometheus.Registerer, fn CountFunc) error {
	return reg.Register(&countsCollector{fn: fn, desc: prometheus.NewDesc(
		"pinhub_documents",
		"Approximate number of documents per collection.",
		[]string{"collection"}, nil,
	)})
}

type countsCollector struct {
	fn   CountFunc
	desc *prometheus.Desc
}

func (cc *countsCollector) Describe(ch chan<- *prometheus.Desc) { ch <- cc.desc }

func (cc *countsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for name, n := range cc.fn(ctx) {
		ch <- prometheus.MustNewConstMetric(cc.desc, prometheus.GaugeValue, float64(n), name)
	}
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop is a Recorder that does nothing.
type Nop struct{}

func (Nop) PinCreated()     {}
func (Nop) PinSaved()       {}
func (Nop) PinUnsaved()     {}
func (Nop) UserFollowed()   {}
func (Nop) UserUnfollowed() {}
func (Nop) CommentCreated() {}
func (Nop) UserRegistered() {}
func (Nop) LoginFailed()    {}
