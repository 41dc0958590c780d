package telemetry

import "time"

type TelemetryEvent interface {
	Timestamp() time.Time // When the event occurred
	EventType() string    // For categorization/filtering
}

type ProbeCompleted struct {
	timestamp time.Time
	URL       string
	Role      string
	Up        bool
	Latency   time.Duration // Zero when the endpoint is down
}

func (e ProbeCompleted) Timestamp() time.Time { return e.timestamp }
func (e ProbeCompleted) EventType() string    { return "probe_completed" }

func NewProbeCompleted(url, role string, up bool, latency time.Duration) ProbeCompleted {
	return ProbeCompleted{
		timestamp: time.Now(),
		URL:       url,
		Role:      role,
		Up:        up,
		Latency:   latency,
	}
}

type SelectionMade struct {
	timestamp  time.Time
	CycleID    string
	ChosenURL  string // Empty when both endpoints are down
	Diagnostic string
}

func (e SelectionMade) Timestamp() time.Time { return e.timestamp }
func (e SelectionMade) EventType() string    { return "selection_made" }

func NewSelectionMade(cycleID, chosenURL, diagnostic string) SelectionMade {
	return SelectionMade{
		timestamp:  time.Now(),
		CycleID:    cycleID,
		ChosenURL:  chosenURL,
		Diagnostic: diagnostic,
	}
}

type ConnectionStateChanged struct {
	timestamp time.Time
	URL       string
	State     string
}

func (e ConnectionStateChanged) Timestamp() time.Time { return e.timestamp }
func (e ConnectionStateChanged) EventType() string    { return "connection_state_changed" }

func NewConnectionStateChanged(url, state string) ConnectionStateChanged {
	return ConnectionStateChanged{
		timestamp: time.Now(),
		URL:       url,
		State:     state,
	}
}

type ConnectAttemptFailed struct {
	timestamp time.Time
	URL       string
	Attempt   int
	Budget    int
	Err       error
}

func (e ConnectAttemptFailed) Timestamp() time.Time { return e.timestamp }
func (e ConnectAttemptFailed) EventType() string    { return "connect_attempt_failed" }

func NewConnectAttemptFailed(url string, attempt, budget int, err error) ConnectAttemptFailed {
	return ConnectAttemptFailed{
		timestamp: time.Now(),
		URL:       url,
		Attempt:   attempt,
		Budget:    budget,
		Err:       err,
	}
}

type EndpointSwitched struct {
	timestamp time.Time
	FromURL   string
	ToURL     string
}

func (e EndpointSwitched) Timestamp() time.Time { return e.timestamp }
func (e EndpointSwitched) EventType() string    { return "endpoint_switched" }

func NewEndpointSwitched(fromURL, toURL string) EndpointSwitched {
	return EndpointSwitched{
		timestamp: time.Now(),
		FromURL:   fromURL,
		ToURL:     toURL,
	}
}

type RoundTripCompleted struct {
	timestamp time.Time
	URL       string
	Latitude  float64
	Longitude float64
	Latency   time.Duration // Send to matching reply
}

func (e RoundTripCompleted) Timestamp() time.Time { return e.timestamp }
func (e RoundTripCompleted) EventType() string    { return "round_trip_completed" }

func NewRoundTripCompleted(url string, lat, lon float64, latency time.Duration) RoundTripCompleted {
	return RoundTripCompleted{
		timestamp: time.Now(),
		URL:       url,
		Latitude:  lat,
		Longitude: lon,
		Latency:   latency,
	}
}

type ClientError struct {
	timestamp time.Time
	Err       error
	Context   string // Additional context (e.g., "probe", "connect", "emit")
	Severity  ErrorSeverity
}

func (e ClientError) Timestamp() time.Time { return e.timestamp }
func (e ClientError) EventType() string    { return "client_error" }

func NewClientError(err error, context string, severity ErrorSeverity) ClientError {
	return ClientError{
		timestamp: time.Now(),
		Err:       err,
		Context:   context,
		Severity:  severity,
	}
}

type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityCritical
)

func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityCritical:
		return "critical"
	}
	return "unknown"
}

type TelemetryPublisher interface {
	// Publish sends a telemetry event to the aggregator.
	// This is a non-blocking, fire-and-forget call.
	Publish(event TelemetryEvent)
}

// MultiPublisher fans one event out to several publishers.
type MultiPublisher []TelemetryPublisher

func (m MultiPublisher) Publish(event TelemetryEvent) {
	for _, p := range m {
		if p != nil {
			p.Publish(event)
		}
	}
}
