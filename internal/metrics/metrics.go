// Package metrics exposes Prometheus collectors for the API and its
// background work.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buttergolf",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "buttergolf",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	OrderTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buttergolf",
		Name:      "order_transitions_total",
		Help:      "Order status changes by target status.",
	}, []string{"to"})

	PushSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buttergolf",
		Name:      "push_sends_total",
		Help:      "Push notification attempts by outcome.",
	}, []string{"outcome"})

	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buttergolf",
		Name:      "webhook_events_total",
		Help:      "Verified webhook events by source and type.",
	}, []string{"source", "type"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buttergolf",
		Name:      "job_items_total",
		Help:      "Items processed by background jobs.",
	}, []string{"job", "outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests, HTTPDuration, OrderTransitions, PushSends, WebhookEvents, JobRuns,
	)
}

// Middleware records request counts and latency keyed by the matched route
// pattern, so ids in paths don't explode label cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && status != fiber.StatusNotFound {
			route = r.Path
		}
		HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
