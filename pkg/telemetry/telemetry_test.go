package telemetry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// Mock clock for deterministic testing
type MockClock struct {
	current time.Time
}

func (m *MockClock) Now() time.Time {
	return m.current
}

func (m *MockClock) Advance(d time.Duration) {
	m.current = m.current.Add(d)
}

// waitFor polls the aggregator until cond holds or a second passes.
func waitFor(t *testing.T, agg *Aggregator, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		snap := agg.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time; last snapshot: %+v", snap)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func startAggregator(t *testing.T) *Aggregator {
	t.Helper()
	clock := &MockClock{current: time.Unix(1000, 0)}
	agg := NewAggregator(clock, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	agg.Start(ctx)
	t.Cleanup(func() {
		agg.Stop()
		cancel()
	})
	return agg
}

func TestAggregator_ProbeCounting(t *testing.T) {
	agg := startAggregator(t)

	agg.Publish(NewProbeCompleted("ws://a", "primary", false, 0))
	agg.Publish(NewProbeCompleted("ws://b", "replica", true, 20*time.Millisecond))

	snapshot := waitFor(t, agg, func(s Snapshot) bool { return s.ProbesTotal == 2 })
	if snapshot.ProbesDown != 1 {
		t.Errorf("expected ProbesDown to be 1, got %d", snapshot.ProbesDown)
	}
	if snapshot.ProbesDownByRole["primary"] != 1 {
		t.Errorf("expected primary to be counted down once, got %d", snapshot.ProbesDownByRole["primary"])
	}
	if len(snapshot.LastProbes) != 2 || snapshot.LastProbes[0].Role != "primary" {
		t.Errorf("expected last probes sorted by role, got %+v", snapshot.LastProbes)
	}
}

func TestAggregator_ConnectionState(t *testing.T) {
	agg := startAggregator(t)

	agg.Publish(NewSelectionMade("cycle-1", "ws://b", "primary unavailable, using replica"))
	snapshot := waitFor(t, agg, func(s Snapshot) bool { return s.CycleID == "cycle-1" })
	if snapshot.Diagnostic != "primary unavailable, using replica" {
		t.Errorf("unexpected diagnostic %q", snapshot.Diagnostic)
	}

	agg.Publish(NewConnectionStateChanged("ws://b", "connected"))
	snapshot = waitFor(t, agg, func(s Snapshot) bool { return s.ConnectionState == "connected" })
	if snapshot.CurrentURL != "ws://b" {
		t.Errorf("expected current url ws://b, got %s", snapshot.CurrentURL)
	}
	if snapshot.Diagnostic != "primary unavailable, using replica" {
		t.Errorf("expected diagnostic to survive connect, got %q", snapshot.Diagnostic)
	}

	agg.Publish(NewConnectAttemptFailed("ws://b", 1, 3, errors.New("refused")))
	agg.Publish(NewEndpointSwitched("ws://b", "ws://a"))
	snapshot = waitFor(t, agg, func(s Snapshot) bool { return s.EndpointSwitches == 1 })
	if snapshot.ConnectFailures != 1 {
		t.Errorf("expected 1 connect failure, got %d", snapshot.ConnectFailures)
	}
	if snapshot.CurrentURL != "ws://a" {
		t.Errorf("expected switch to update current url, got %s", snapshot.CurrentURL)
	}
	if snapshot.LastConnectError != "refused" {
		t.Errorf("expected last connect error to be recorded, got %q", snapshot.LastConnectError)
	}

	agg.Publish(NewConnectionStateChanged("ws://a", "connected"))
	snapshot = waitFor(t, agg, func(s Snapshot) bool { return s.CurrentURL == "ws://a" && s.ConnectionState == "connected" && s.LastConnectError == "" })
	if snapshot.ConnectFailures != 1 {
		t.Errorf("expected connect failures to be cumulative, got %d", snapshot.ConnectFailures)
	}
}

func TestAggregator_LatencyMetrics(t *testing.T) {
	agg := startAggregator(t)

	for i := 1; i <= 20; i++ {
		agg.Publish(NewRoundTripCompleted("ws://a", 40.7, -74.0, time.Duration(i)*time.Millisecond))
	}

	snapshot := waitFor(t, agg, func(s Snapshot) bool { return s.RoundTrips == 20 })
	if math.Abs(snapshot.AvgLatencyMs-10.5) > 1e-9 {
		t.Errorf("expected average latency 10.5ms, got %f", snapshot.AvgLatencyMs)
	}
	if snapshot.P95LatencyMs < 19 || snapshot.P95LatencyMs > 20 {
		t.Errorf("expected p95 latency between 19ms and 20ms, got %f", snapshot.P95LatencyMs)
	}
	if snapshot.RoundTripsPerSecond != 2 {
		t.Errorf("expected 2 round trips per second over a 10s window, got %f", snapshot.RoundTripsPerSecond)
	}
}

func TestAggregator_ErrorTracking(t *testing.T) {
	agg := startAggregator(t)

	agg.Publish(NewClientError(context.DeadlineExceeded, "probe", ErrorSeverityWarning))
	agg.Publish(NewClientError(context.Canceled, "connect", ErrorSeverityError))

	snapshot := waitFor(t, agg, func(s Snapshot) bool { return s.ErrorsTotal == 2 })
	if snapshot.ErrorsByContext["probe"] != 1 {
		t.Errorf("expected ErrorsByContext[probe] to be 1, got %d", snapshot.ErrorsByContext["probe"])
	}
	if snapshot.ErrorsBySeverity[ErrorSeverityWarning] != 1 {
		t.Errorf("expected ErrorsBySeverity[Warning] to be 1, got %d", snapshot.ErrorsBySeverity[ErrorSeverityWarning])
	}
	if len(snapshot.RecentErrors) != 2 || snapshot.RecentErrors[0] != context.Canceled.Error() {
		t.Errorf("expected most recent error first, got %v", snapshot.RecentErrors)
	}
}

func TestNoopPublisher(t *testing.T) {
	noop := NewNoopPublisher()

	// Should not panic
	noop.Publish(NewProbeCompleted("test", "primary", true, time.Millisecond))
	OrNoop(nil).Publish(NewEndpointSwitched("a", "b"))
}

type countingPublisher struct{ n int }

func (c *countingPublisher) Publish(TelemetryEvent) { c.n++ }

func TestMultiPublisher(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	m := MultiPublisher{a, nil, b}
	m.Publish(NewEndpointSwitched("a", "b"))
	if a.n != 1 || b.n != 1 {
		t.Errorf("expected each publisher to receive one event, got %d and %d", a.n, b.n)
	}
}

func TestEventTypes(t *testing.T) {
	testCases := []struct {
		name      string
		event     TelemetryEvent
		eventType string
	}{
		{"ProbeCompleted", NewProbeCompleted("test", "primary", true, time.Millisecond), "probe_completed"},
		{"SelectionMade", NewSelectionMade("id", "test", ""), "selection_made"},
		{"ConnectionStateChanged", NewConnectionStateChanged("test", "connected"), "connection_state_changed"},
		{"ConnectAttemptFailed", NewConnectAttemptFailed("test", 1, 3, errors.New("x")), "connect_attempt_failed"},
		{"EndpointSwitched", NewEndpointSwitched("a", "b"), "endpoint_switched"},
		{"RoundTripCompleted", NewRoundTripCompleted("test", 1, 2, time.Millisecond), "round_trip_completed"},
		{"ClientError", NewClientError(context.DeadlineExceeded, "test", ErrorSeverityInfo), "client_error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.event.EventType() != tc.eventType {
				t.Errorf("expected event type %s, got %s", tc.eventType, tc.event.EventType())
			}
			if tc.event.Timestamp().IsZero() {
				t.Error("expected non-zero timestamp")
			}
		})
	}
}
