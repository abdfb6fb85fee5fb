package api

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the outbound call collectors shared by every Client copy.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the backend call collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_backend_requests_total",
				Help: "Total number of requests sent to the REST backend",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_backend_request_duration_seconds",
				Help:    "REST backend request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

func (m *Metrics) observe(method, path string, status int, seconds float64) {
	if m == nil {
		return
	}
	route := routeLabel(path)
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

var routeWords = map[string]bool{
	"auth": true, "login": true, "logout": true, "me": true,
	"projects": true, "members": true, "tasks": true, "users": true,
	"notifications": true, "pending": true, "received": true,
	"accept": true, "refuse": true,
}

// routeLabel collapses identifiers so label cardinality stays bounded:
// /projects/42/tasks -> /projects/:id/tasks.
func routeLabel(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p != "" && !routeWords[p] {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}
