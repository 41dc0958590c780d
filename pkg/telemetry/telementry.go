package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Clock interface allows for deterministic testing
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Config for telemetry settings
type Config struct {
	BufferSize        int `default:"1000"`
	MaxRecentErrors   int `default:"50"`
	RateWindowSeconds int `default:"10"`
	LatencyWindow     int `default:"100"`
}

func DefaultConfig() Config {
	return Config{
		BufferSize:        1000,
		MaxRecentErrors:   50,
		RateWindowSeconds: 10,
		LatencyWindow:     100,
	}
}

// Aggregator is the core stateful component that processes telemetry events
type Aggregator struct {
	mu    sync.RWMutex
	clock Clock
	cfg   Config

	// Core counters
	probesTotal      uint64
	probesDown       uint64
	roundTrips       uint64
	connectFailures  uint64
	endpointSwitches uint64
	errorsTotal      uint64

	// Breakdown
	probesDownByRole map[string]uint64
	errorsByContext  map[string]uint64
	errorsBySeverity map[ErrorSeverity]uint64

	// Rate calculations
	roundTripTimes []time.Time

	// Current state
	connectionState  string
	currentURL       string
	cycleID          string
	diagnostic       string
	lastConnectError string
	lastProbe        map[string]ProbeCompleted

	// Recent errors (ring buffer)
	recentErrors []string
	errorIndex   int

	// Latency tracking (ring buffer)
	latencies    []time.Duration
	latencyIndex int
	latencyCount int

	// Control channels
	eventCh chan TelemetryEvent
	done    chan struct{}
	wg      sync.WaitGroup

	// Startup time
	startTime time.Time
}

// NewAggregator creates a new telemetry aggregator
func NewAggregator(clock Clock, cfg Config) *Aggregator {
	if clock == nil {
		clock = RealClock{}
	}

	return &Aggregator{
		clock:            clock,
		cfg:              cfg,
		connectionState:  "idle",
		probesDownByRole: make(map[string]uint64),
		errorsByContext:  make(map[string]uint64),
		errorsBySeverity: make(map[ErrorSeverity]uint64),
		lastProbe:        make(map[string]ProbeCompleted),
		roundTripTimes:   make([]time.Time, 0, cfg.RateWindowSeconds*10),
		recentErrors:     make([]string, cfg.MaxRecentErrors),
		latencies:        make([]time.Duration, cfg.LatencyWindow),
		eventCh:          make(chan TelemetryEvent, cfg.BufferSize),
		done:             make(chan struct{}),
		startTime:        clock.Now(),
	}
}

// Start begins processing telemetry events
func (a *Aggregator) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.processEvents(ctx)
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	close(a.done)
	a.wg.Wait()
}

// Publish implements TelemetryPublisher interface
func (a *Aggregator) Publish(event TelemetryEvent) {
	select {
	case a.eventCh <- event:
	default:
		// Non-blocking send - drop if channel is full
		// This protects the hot path from being blocked
	}
}

// Snapshot implements TelemetryReader interface
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.clock.Now()

	avgLatency, p95Latency := a.calculateLatencyMetrics()

	downByRole := make(map[string]uint64, len(a.probesDownByRole))
	for k, v := range a.probesDownByRole {
		downByRole[k] = v
	}
	errorsByContext := make(map[string]uint64, len(a.errorsByContext))
	for k, v := range a.errorsByContext {
		errorsByContext[k] = v
	}
	errorsBySeverity := make(map[ErrorSeverity]uint64, len(a.errorsBySeverity))
	for k, v := range a.errorsBySeverity {
		errorsBySeverity[k] = v
	}

	probes := make([]ProbeCompleted, 0, len(a.lastProbe))
	for _, p := range a.lastProbe {
		probes = append(probes, p)
	}
	sort.Slice(probes, func(i, j int) bool { return probes[i].Role < probes[j].Role })

	recentErrors := make([]string, 0)
	for i := 0; i < len(a.recentErrors); i++ {
		idx := (a.errorIndex - i - 1 + len(a.recentErrors)) % len(a.recentErrors)
		if a.recentErrors[idx] != "" {
			recentErrors = append(recentErrors, a.recentErrors[idx])
		}
	}

	return Snapshot{
		ProbesTotal:         a.probesTotal,
		ProbesDown:          a.probesDown,
		ProbesDownByRole:    downByRole,
		LastProbes:          probes,
		RoundTrips:          a.roundTrips,
		ConnectFailures:     a.connectFailures,
		EndpointSwitches:    a.endpointSwitches,
		ErrorsTotal:         a.errorsTotal,
		ErrorsByContext:     errorsByContext,
		ErrorsBySeverity:    errorsBySeverity,
		RecentErrors:        recentErrors,
		ConnectionState:     a.connectionState,
		CurrentURL:          a.currentURL,
		CycleID:             a.cycleID,
		Diagnostic:          a.diagnostic,
		LastConnectError:    a.lastConnectError,
		RoundTripsPerSecond: a.calculateRate(a.roundTripTimes, now),
		AvgLatencyMs:        avgLatency,
		P95LatencyMs:        p95Latency,
		UptimeSeconds:       now.Sub(a.startTime).Seconds(),
		ChannelUtilization:  float64(len(a.eventCh)) / float64(cap(a.eventCh)) * 100,
	}
}

func (a *Aggregator) processEvents(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case event := <-a.eventCh:
			a.handleEvent(event)
		}
	}
}

func (a *Aggregator) handleEvent(event TelemetryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()

	switch e := event.(type) {
	case ProbeCompleted:
		a.probesTotal++
		if !e.Up {
			a.probesDown++
			a.probesDownByRole[e.Role]++
		}
		a.lastProbe[e.Role] = e

	case SelectionMade:
		a.cycleID = e.CycleID
		a.diagnostic = e.Diagnostic

	case ConnectionStateChanged:
		a.connectionState = e.State
		if e.URL != "" {
			a.currentURL = e.URL
		}
		if e.State == "connected" {
			a.lastConnectError = ""
		}

	case ConnectAttemptFailed:
		a.connectFailures++
		if e.Err != nil {
			a.lastConnectError = e.Err.Error()
		}

	case EndpointSwitched:
		a.endpointSwitches++
		a.currentURL = e.ToURL

	case RoundTripCompleted:
		a.roundTrips++
		a.addRoundTripTime(now)
		a.addLatency(e.Latency)

	case ClientError:
		a.errorsTotal++
		a.errorsByContext[e.Context]++
		a.errorsBySeverity[e.Severity]++
		if e.Err != nil {
			a.addRecentError(e.Err.Error())
		}
	}
}

func (a *Aggregator) addRoundTripTime(t time.Time) {
	cutoff := t.Add(-time.Duration(a.cfg.RateWindowSeconds) * time.Second)

	// Remove old entries
	for len(a.roundTripTimes) > 0 && a.roundTripTimes[0].Before(cutoff) {
		a.roundTripTimes = a.roundTripTimes[1:]
	}

	a.roundTripTimes = append(a.roundTripTimes, t)
}

func (a *Aggregator) addLatency(latency time.Duration) {
	if len(a.latencies) == 0 {
		return
	}
	a.latencies[a.latencyIndex] = latency
	a.latencyIndex = (a.latencyIndex + 1) % len(a.latencies)
	if a.latencyCount < len(a.latencies) {
		a.latencyCount++
	}
}

func (a *Aggregator) addRecentError(err string) {
	if len(a.recentErrors) == 0 {
		return
	}
	a.recentErrors[a.errorIndex] = err
	a.errorIndex = (a.errorIndex + 1) % len(a.recentErrors)
}

func (a *Aggregator) calculateRate(times []time.Time, now time.Time) float64 {
	if len(times) == 0 || a.cfg.RateWindowSeconds <= 0 {
		return 0.0
	}

	cutoff := now.Add(-time.Duration(a.cfg.RateWindowSeconds) * time.Second)
	count := 0

	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}

	return float64(count) / float64(a.cfg.RateWindowSeconds)
}

// calculateLatencyMetrics returns mean and p95 in milliseconds over the
// latency window.
func (a *Aggregator) calculateLatencyMetrics() (float64, float64) {
	if a.latencyCount == 0 {
		return 0.0, 0.0
	}

	ms := make([]float64, 0, a.latencyCount)
	for _, lat := range a.latencies[:a.latencyCount] {
		ms = append(ms, float64(lat)/float64(time.Millisecond))
	}
	sort.Float64s(ms)

	return stat.Mean(ms, nil), stat.Quantile(0.95, stat.Empirical, ms, nil)
}
