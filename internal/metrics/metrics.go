package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the dashboard.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// API client metrics
	ClientRequests *prometheus.CounterVec
	ClientDuration *prometheus.HistogramVec

	// Poll manager metrics
	Polls           *prometheus.CounterVec
	PollDuration    *prometheus.HistogramVec
	Subscribers     *prometheus.GaugeVec
	StreamClients   prometheus.Gauge
	Unauthenticated prometheus.Counter
}

// New creates the collectors and registers them on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		ClientRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetdash_client_requests_total",
				Help: "Total number of requests sent to the fleet backend",
			},
			[]string{"method", "path", "status"},
		),
		ClientDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fleetdash_client_request_duration_seconds",
				Help:    "Duration of requests sent to the fleet backend",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		Polls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetdash_polls_total",
				Help: "Total number of resource fetches performed by the poll manager",
			},
			[]string{"resource", "result"},
		),
		PollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fleetdash_poll_duration_seconds",
				Help:    "Duration of resource fetches performed by the poll manager",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		Subscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleetdash_poll_subscribers",
				Help: "Number of active subscribers per polled resource",
			},
			[]string{"resource"},
		),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fleetdash_stream_clients",
			Help: "Number of connected websocket snapshot streams",
		}),
		Unauthenticated: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetdash_unauthenticated_total",
			Help: "Number of backend responses that ended the session with 401",
		}),
	}
}

// ObserveRequest records a finished backend request
func (metrics *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if metrics == nil {
		return
	}
	metrics.ClientRequests.WithLabelValues(method, path, status).Inc()
	metrics.ClientDuration.WithLabelValues(method, path).Observe(seconds)
}

// ObserveUnauthenticated records a 401 response
func (metrics *Metrics) ObserveUnauthenticated() {
	if metrics == nil {
		return
	}
	metrics.Unauthenticated.Inc()
}

// ObservePoll records a finished poll of a resource
func (metrics *Metrics) ObservePoll(resource string, err error, seconds float64) {
	if metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.Polls.WithLabelValues(resource, result).Inc()
	metrics.PollDuration.WithLabelValues(resource).Observe(seconds)
}

// SetSubscribers records the current subscriber count of a resource
func (metrics *Metrics) SetSubscribers(resource string, n int) {
	if metrics == nil {
		return
	}
	metrics.Subscribers.WithLabelValues(resource).Set(float64(n))
}

// AddStreamClients adjusts the connected websocket stream count
func (metrics *Metrics) AddStreamClients(delta int) {
	if metrics == nil {
		return
	}
	metrics.StreamClients.Add(float64(delta))
}
