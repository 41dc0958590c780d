package telemetry

type Snapshot struct {
	// Probe metrics
	ProbesTotal      uint64
	ProbesDown       uint64
	ProbesDownByRole map[string]uint64
	LastProbes       []ProbeCompleted

	// Round trips
	RoundTrips          uint64
	RoundTripsPerSecond float64
	AvgLatencyMs        float64
	P95LatencyMs        float64

	// Connection status
	ConnectionState  string
	CurrentURL       string
	CycleID          string
	Diagnostic       string
	LastConnectError string
	ConnectFailures  uint64
	EndpointSwitches uint64

	// System metrics
	UptimeSeconds      float64
	ChannelUtilization float64

	// Error breakdown
	ErrorsTotal      uint64
	ErrorsByContext  map[string]uint64
	ErrorsBySeverity map[ErrorSeverity]uint64
	RecentErrors     []string
}

type TelemetryReader interface {
	Snapshot() Snapshot
}
