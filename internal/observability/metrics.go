package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's Prometheus collectors
type Registry struct {
	reg             *prometheus.Registry
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	AuthFailures    *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	OrdersPlaced    prometheus.Counter
	OrderLineItems  prometheus.Histogram
	OrderTotalValue prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orders_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	authFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_auth_failures_total",
		Help: "Rejected bearer credentials by reason.",
	}, []string{"reason"})
	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rate_limited_total",
		Help: "Credential attempts refused by the throttle, by action.",
	}, []string{"action"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders persisted.",
	})
	lineItems := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orders_line_items",
		Help:    "Line items per placed order.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})
	totalValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orders_total_value",
		Help:    "Order total including tax.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	r.MustRegister(
		httpRequests, httpDuration, authFailures, rateLimited, ordersPlaced, lineItems, totalValue,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:             r,
		HTTPRequests:    httpRequests,
		HTTPDuration:    httpDuration,
		AuthFailures:    authFailures,
		RateLimited:     rateLimited,
		OrdersPlaced:    ordersPlaced,
		OrderLineItems:  lineItems,
		OrderTotalValue: totalValue,
	}
}

// ObserveRequest records one served HTTP request
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// AuthFailed counts a rejected credential
func (r *Registry) AuthFailed(reason string) {
	r.AuthFailures.WithLabelValues(reason).Inc()
}

// Throttled counts a refused credential attempt
func (r *Registry) Throttled(action string) {
	r.RateLimited.WithLabelValues(action).Inc()
}

// OrderPlaced records a persisted order
func (r *Registry) OrderPlaced(items int, total float64) {
	r.OrdersPlaced.Inc()
	r.OrderLineItems.Observe(float64(items))
	r.OrderTotalValue.Observe(total)
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
