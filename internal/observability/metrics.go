// Package observability holds the Prometheus collectors shared by the HTTP
// layer and the consistency maintainer.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "customer_address"

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	flagRefreshes *prometheus.CounterVec
	primaryClaims prometheus.Counter
	flagsRepaired prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		flagRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_flag_refreshes_total",
			Help:      "Derived address flag recomputations by resulting state.",
		}, []string{"state"}),
		primaryClaims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primary_address_claims_total",
			Help:      "Times an address was made the customer's only primary.",
		}),
		flagsRepaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_flags_repaired_total",
			Help:      "Customers whose stored flags had drifted and were rewritten.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.flagRefreshes, m.primaryClaims, m.flagsRepaired)
	return m
}

// Middleware records request count and latency keyed by the matched route
// template, so path ids do not explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// FlagsRefreshed counts a recompute; state is "none", "single" or "multiple".
func (m *Metrics) FlagsRefreshed(state string) {
	if m == nil {
		return
	}
	m.flagRefreshes.WithLabelValues(state).Inc()
}

func (m *Metrics) PrimaryClaimed() {
	if m == nil {
		return
	}
	m.primaryClaims.Inc()
}

func (m *Metrics) FlagsRepaired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.flagsRepaired.Add(float64(n))
}
