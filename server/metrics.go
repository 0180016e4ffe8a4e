package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusphere_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method", "route", "status"})

	postsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusphere_posts_created_total",
		Help: "The total number of posts created",
	})

	imageUploadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusphere_image_upload_failures_total",
		Help: "Image uploads that failed, by kind of image",
	}, []string{"kind"})

	listServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusphere_post_listings_total",
		Help: "Post listings served, by source",
	}, []string{"source"})

	sseClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusphere_sse_clients",
		Help: "Currently connected SSE clients",
	})
)

// observe logs and records the latency of each request
func observe(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()

	latency := time.Since(start)
	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	requestDuration.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Observe(latency.Seconds())

	log.WithFields(log.Fields{
		"method":  c.Method(),
		"route":   c.Route().Path,
		"status":  status,
		"latency": latency,
	}).Info("Request")
	return err
}
