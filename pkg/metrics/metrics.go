package metrics

import (
	"net/http"

	"location-tracker/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// States reported by the connection state gauge. Exactly one is set to 1.
var States = []string{"idle", "probing", "connected", "failing", "switching_endpoint"}

// Publisher turns telemetry events into Prometheus series. It implements
// telemetry.TelemetryPublisher and is safe for concurrent use.
type Publisher struct {
	registry *prometheus.Registry

	ProbesTotal       *prometheus.CounterVec
	ProbeLatency      *prometheus.HistogramVec
	Selections        *prometheus.CounterVec
	ConnectionState   *prometheus.GaugeVec
	ConnectFailures   *prometheus.CounterVec
	EndpointSwitches  prometheus.Counter
	RoundTripsTotal   *prometheus.CounterVec
	RoundTripLatency  prometheus.Histogram
	ClientErrorsTotal *prometheus.CounterVec
}

// New registers the tracker collectors plus the Go and process collectors on
// a fresh registry.
func New() *Publisher {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	p := &Publisher{registry: reg}
	p.ProbesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_probes_total",
			Help: "Endpoint probes by role and outcome",
		},
		[]string{"role", "status"}, // status: up, down
	)
	p.ProbeLatency = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_probe_latency_ms",
			Help:    "Time to complete a probe handshake",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"role"},
	)
	p.Selections = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_selections_total",
			Help: "Selection outcomes by diagnostic",
		},
		[]string{"diagnostic"},
	)
	p.ConnectionState = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracker_connection_state",
			Help: "Current connection manager state (1 for the active state)",
		},
		[]string{"state"},
	)
	p.ConnectFailures = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_connect_failures_total",
			Help: "Failed connect attempts by endpoint",
		},
		[]string{"url"},
	)
	p.EndpointSwitches = f.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_endpoint_switches_total",
			Help: "Failovers to the alternate endpoint",
		},
	)
	p.RoundTripsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_round_trips_total",
			Help: "Completed location round trips by endpoint",
		},
		[]string{"url"},
	)
	p.RoundTripLatency = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_round_trip_latency_ms",
			Help:    "Location round-trip latency",
			Buckets: prometheus.LinearBuckets(5, 10, 20),
		},
	)
	p.ClientErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_client_errors_total",
			Help: "Client errors by context and severity",
		},
		[]string{"context", "severity"},
	)

	for _, s := range States {
		p.ConnectionState.WithLabelValues(s).Set(0)
	}
	p.ConnectionState.WithLabelValues("idle").Set(1)
	return p
}

// Registry exposes the underlying registry.
func (p *Publisher) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus text format.
func (p *Publisher) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Publisher) Publish(event telemetry.TelemetryEvent) {
	switch e := event.(type) {
	case telemetry.ProbeCompleted:
		status := "down"
		if e.Up {
			status = "up"
			p.ProbeLatency.WithLabelValues(e.Role).Observe(ms(e.Latency.Seconds()))
		}
		p.ProbesTotal.WithLabelValues(e.Role, status).Inc()

	case telemetry.SelectionMade:
		diag := e.Diagnostic
		if diag == "" {
			diag = "none"
		}
		p.Selections.WithLabelValues(diag).Inc()

	case telemetry.ConnectionStateChanged:
		for _, s := range States {
			v := 0.0
			if s == e.State {
				v = 1
			}
			p.ConnectionState.WithLabelValues(s).Set(v)
		}

	case telemetry.ConnectAttemptFailed:
		p.ConnectFailures.WithLabelValues(e.URL).Inc()

	case telemetry.EndpointSwitched:
		p.EndpointSwitches.Inc()

	case telemetry.RoundTripCompleted:
		p.RoundTripsTotal.WithLabelValues(e.URL).Inc()
		p.RoundTripLatency.Observe(ms(e.Latency.Seconds()))

	case telemetry.ClientError:
		p.ClientErrorsTotal.WithLabelValues(e.Context, e.Severity.String()).Inc()
	}
}

func ms(seconds float64) float64 { return seconds * 1000 }
