package probe

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"location-tracker/pkg/endpoint"
	"location-tracker/pkg/telemetry"
	"location-tracker/pkg/transport"
)

// DefaultTimeout bounds a single reachability check.
const DefaultTimeout = 3000 * time.Millisecond

type Status int

const (
	StatusDown Status = iota
	StatusUp
)

func (s Status) String() string {
	if s == StatusUp {
		return "up"
	}
	return "down"
}

// Result is the outcome of one probe attempt.
type Result struct {
	Endpoint endpoint.Endpoint
	Status   Status
	Latency  time.Duration // only meaningful when Status is StatusUp
	Err      error
	At       time.Time
}

func (r Result) Up() bool { return r.Status == StatusUp }

// LatencyMs returns the time-to-connect in milliseconds, or false when the
// endpoint was down.
func (r Result) LatencyMs() (int64, bool) {
	if !r.Up() {
		return 0, false
	}
	return r.Latency.Milliseconds(), true
}

func (r Result) String() string {
	if ms, ok := r.LatencyMs(); ok {
		return fmt.Sprintf("%s -> %s (%d ms)", r.Endpoint.URL, r.Status, ms)
	}
	return fmt.Sprintf("%s -> %s", r.Endpoint.URL, r.Status)
}

// ResultLog keeps probe results in the order they arrived.
type ResultLog struct {
	mu      sync.Mutex
	results []Result
}

func (l *ResultLog) Append(r Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
}

// Results returns a copy of the log in arrival order.
func (l *ResultLog) Results() []Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Result, len(l.results))
	copy(out, l.results)
	return out
}

func (l *ResultLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = nil
}

// Prober checks endpoint reachability with short-lived connections that are
// never reused for telemetry.
type Prober struct {
	dialer    transport.Dialer
	timeout   time.Duration
	log       *ResultLog
	publisher telemetry.TelemetryPublisher
	logger    *log.Logger
}

// NewProber creates a prober. A non-positive timeout falls back to DefaultTimeout.
func NewProber(dialer transport.Dialer, timeout time.Duration, publisher telemetry.TelemetryPublisher, logger *log.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Prober{
		dialer:    dialer,
		timeout:   timeout,
		log:       &ResultLog{},
		publisher: telemetry.OrNoop(publisher),
		logger:    logger,
	}
}

// Log returns the results recorded so far.
func (p *Prober) Log() *ResultLog { return p.log }

func (p *Prober) Timeout() time.Duration { return p.timeout }

// Probe dials e once, bounded by the probe timeout, and closes the probe
// connection before returning. Failures are classified as StatusDown.
func (p *Prober) Probe(ctx context.Context, e endpoint.Endpoint) Result {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.Dial(probeCtx, e.URL)
	elapsed := time.Since(start)

	result := Result{Endpoint: e, At: time.Now()}
	if err != nil {
		result.Status = StatusDown
		result.Err = err
		p.logger.Printf("probe %s failed after %s: %v", e, elapsed.Round(time.Millisecond), err)
		p.publisher.Publish(telemetry.NewClientError(err, "probe", telemetry.ErrorSeverityInfo))
	} else {
		result.Status = StatusUp
		result.Latency = elapsed
		if cerr := conn.Close(); cerr != nil {
			p.logger.Printf("closing probe connection to %s: %v", e.URL, cerr)
		}
	}

	p.log.Append(result)
	p.publisher.Publish(telemetry.NewProbeCompleted(e.URL, e.Role.String(), result.Up(), result.Latency))
	return result
}
