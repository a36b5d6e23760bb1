package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesperf-backend/internal/apperr"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SalesRecordsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sales_records_created_total",
			Help: "Total number of sales records written",
		},
	)

	TargetsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targets_created_total",
			Help: "Total number of targets created by scope",
		},
		[]string{"scope"},
	)
)

// Middleware records request count and latency keyed by the matched route
// pattern, not the raw path.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		// the error handler has not written the response yet
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if _, ok := apperr.As(err); ok {
				status = apperr.Status(err)
			}
		}
		route := c.Route().Path
		HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
