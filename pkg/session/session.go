package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"location-tracker/pkg/config"
	"location-tracker/pkg/endpoint"
	"location-tracker/pkg/probe"
	"location-tracker/pkg/recorder"
	"location-tracker/pkg/selector"
	"location-tracker/pkg/telemetry"
	"location-tracker/pkg/tracker"
	"location-tracker/pkg/transport"

	"github.com/google/uuid"
)

// Status is a point-in-time view of the session for presentation.
// Nil pointers mean the value does not exist yet.
type Status struct {
	State      State
	Endpoint   *endpoint.Endpoint
	Location   *tracker.Location
	Latency    *time.Duration
	Diagnostic string
	CycleID    string
	Running    bool
	Err        error
}

// Session is the connection manager. It probes both endpoints, owns the one
// live connection, drives the telemetry loop over it and fails over when the
// connection cannot be kept.
type Session struct {
	registry  *endpoint.Registry
	dialer    transport.Dialer
	prober    *probe.Prober
	selector  *selector.Selector
	recorder  *recorder.Recorder
	loop      *tracker.Loop
	publisher telemetry.TelemetryPublisher
	logger    *log.Logger

	attempts int
	backoff  time.Duration

	running  atomic.Bool
	stopGen  atomic.Uint64
	cycleGen atomic.Uint64
	restart  chan struct{}

	mu         sync.RWMutex
	state      State
	current    *endpoint.Endpoint
	conn       transport.Conn
	diagnostic string
	cycleID    string
	err        error

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// New builds an idle session from cfg. The running flag starts true.
func New(cfg *config.Config, dialer transport.Dialer, logger *log.Logger, publisher telemetry.TelemetryPublisher) (*Session, error) {
	registry, err := endpoint.NewRegistry(cfg.PrimaryURL, cfg.ReplicaURL)
	if err != nil {
		return nil, err
	}
	if dialer == nil {
		return nil, errors.New("session: nil dialer")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	publisher = telemetry.OrNoop(publisher)

	attempts := cfg.Reconnect.Attempts
	if attempts <= 0 {
		attempts = config.DefaultReconnectAttempts
	}

	s := &Session{
		registry:  registry,
		dialer:    dialer,
		recorder:  recorder.New(),
		publisher: publisher,
		logger:    logger,
		attempts:  attempts,
		backoff:   cfg.ReconnectBackoff(),
		restart:   make(chan struct{}, 1),
	}
	s.prober = probe.NewProber(dialer, cfg.ProbeTimeout(), publisher, logger)
	s.selector = selector.New(registry, s.prober)
	s.loop = tracker.NewLoop(s.recorder, s.loopActive, publisher, logger)
	s.running.Store(true)
	return s, nil
}

// Start begins the first probing cycle and returns immediately. Progress is
// observable through Status.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.done != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
	return nil
}

// Stop tears the session down: the loop is abandoned without recording the
// reply in flight, the live connection is closed and the state returns to
// Idle. Stop blocks until the session goroutine has exited.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil

	s.mu.Lock()
	s.state = StateIdle
	s.current = nil
	s.mu.Unlock()
	s.publisher.Publish(telemetry.NewConnectionStateChanged("", StateIdle.String()))
	s.logger.Printf("session stopped")
}

// SetRunning toggles continuous round trips. Turning it off lets the round
// trip in flight finish and keeps the connection open. Every stop is latched:
// turning it back on starts a fresh cycle from probing, even when the loop
// never saw the flag down.
func (s *Session) SetRunning(on bool) {
	if !on {
		s.stopGen.Add(1)
		s.running.Store(false)
		return
	}
	if !s.running.Swap(true) {
		select {
		case s.restart <- struct{}{}:
		default:
		}
	}
}

func (s *Session) Running() bool { return s.running.Load() }

// loopActive reports whether the loop may send again: running, and not
// stopped since the current cycle began.
func (s *Session) loopActive() bool {
	return s.running.Load() && s.stopGen.Load() == s.cycleGen.Load()
}

func (s *Session) Status() Status {
	s.mu.RLock()
	st := Status{
		State:      s.state,
		Diagnostic: s.diagnostic,
		CycleID:    s.cycleID,
		Running:    s.running.Load(),
		Err:        s.err,
	}
	if s.current != nil {
		e := *s.current
		st.Endpoint = &e
	}
	s.mu.RUnlock()

	if loc, ok := s.loop.Location(); ok {
		st.Location = &loc
	}
	if lat, ok := s.loop.Latency(); ok {
		st.Latency = &lat
	}
	return st
}

// Samples returns the round trips recorded in the current cycle.
func (s *Session) Samples() []recorder.Sample { return s.recorder.Samples() }

// Stats summarizes the latencies recorded in the current cycle.
func (s *Session) Stats() recorder.Stats { return s.recorder.Stats() }

// Probes returns the probe results of the current cycle in arrival order.
func (s *Session) Probes() []probe.Result { return s.prober.Log().Results() }

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.closeConn()

	var forced *endpoint.Endpoint
	switched := false
	for {
		target, err := s.probeCycle(ctx, forced)
		connected := false
		if err == nil {
			connected, err = s.connectLoop(ctx, *target)
		}
		if ctx.Err() != nil {
			return
		}
		if connected {
			switched = false
		}

		switch {
		case err == nil:
			// Loop stopped by the running flag; the connection stays up.
			forced, switched = nil, false
			if !s.awaitRestart(ctx) {
				return
			}
			s.closeConn()
			continue

		case errors.Is(err, errBudgetExhausted) && !switched:
			other := s.registry.Other(*target)
			s.logger.Printf("giving up on %s after %d attempts, switching to %s", target.URL, s.attempts, other.URL)
			s.publisher.Publish(telemetry.NewEndpointSwitched(target.URL, other.URL))
			forced, switched = &other, true
			continue

		case errors.Is(err, errBudgetExhausted):
			err = fmt.Errorf("%w: %v", ErrFailoverExhausted, err)
		}

		s.fail(err)
		<-ctx.Done()
		return
	}
}

// probeCycle starts a new cycle: fresh id, cleared samples and probe log,
// then one selection. forced, the endpoint switched to after a failover,
// only wins when both endpoints probe up; otherwise the probe decides.
func (s *Session) probeCycle(ctx context.Context, forced *endpoint.Endpoint) (*endpoint.Endpoint, error) {
	cycleID := uuid.NewString()
	s.cycleGen.Store(s.stopGen.Load())
	s.recorder.Reset()
	s.prober.Log().Reset()

	s.mu.Lock()
	s.state = StateProbing
	s.cycleID = cycleID
	s.mu.Unlock()
	s.publisher.Publish(telemetry.NewConnectionStateChanged("", StateProbing.String()))

	outcome := s.selector.Select(ctx)
	target := outcome.Chosen
	if forced != nil && outcome.Primary.Up() && outcome.Replica.Up() {
		target = forced
	} else if forced != nil && target != nil && target.URL != forced.URL {
		s.logger.Printf("cycle %s: %s probed down, staying on %s", cycleID, forced.URL, target.URL)
	}

	chosenURL := ""
	if target != nil {
		chosenURL = target.URL
	}
	s.mu.Lock()
	s.diagnostic = outcome.Diagnostic
	s.mu.Unlock()
	s.publisher.Publish(telemetry.NewSelectionMade(cycleID, chosenURL, outcome.Diagnostic))

	if outcome.Diagnostic != "" {
		s.logger.Printf("cycle %s: %s", cycleID, outcome.Diagnostic)
	}
	if target == nil {
		return nil, ErrBothEndpointsDown
	}
	return target, nil
}

// connectLoop dials target and runs the telemetry loop over it, redialing
// the same endpoint after each connection loss. It reports whether any dial
// succeeded. A nil error means the running flag stopped the loop and the
// connection is still open.
func (s *Session) connectLoop(ctx context.Context, target endpoint.Endpoint) (bool, error) {
	connected := false
	for {
		conn, err := s.dialWithRetry(ctx, target)
		if err != nil {
			return connected, err
		}
		connected = true
		s.setConnected(target, conn)

		err = s.loop.Run(ctx, conn)
		if err == nil || ctx.Err() != nil {
			return connected, err
		}

		s.logger.Printf("connection to %s lost: %v", target.URL, err)
		s.publisher.Publish(telemetry.NewClientError(err, "connection", telemetry.ErrorSeverityWarning))
		s.closeConn()
		s.setState(StateSwitchingEndpoint, target.URL)
	}
}

// dialWithRetry makes up to the reconnection budget of consecutive dials,
// backing off linearly between them.
func (s *Session) dialWithRetry(ctx context.Context, target endpoint.Endpoint) (transport.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		conn, err := s.dialer.Dial(ctx, target.URL)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		s.logger.Printf("attempt %d/%d to connect to %s failed: %v", attempt, s.attempts, target.URL, err)
		s.publisher.Publish(telemetry.NewConnectAttemptFailed(target.URL, attempt, s.attempts, err))
		s.setState(StateSwitchingEndpoint, target.URL)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()

		if attempt == s.attempts {
			break
		}
		if err := sleepCtx(ctx, s.backoff*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", errBudgetExhausted, target.URL, lastErr)
}

func (s *Session) setConnected(target endpoint.Endpoint, conn transport.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.current = &target
	s.state = StateConnected
	s.err = nil
	s.mu.Unlock()

	s.logger.Printf("connected to %s (%s)", target.URL, target.Role)
	s.publisher.Publish(telemetry.NewConnectionStateChanged(target.URL, StateConnected.String()))
}

func (s *Session) setState(state State, url string) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed {
		s.publisher.Publish(telemetry.NewConnectionStateChanged(url, state.String()))
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateFailing
	s.err = err
	s.mu.Unlock()

	s.logger.Printf("session failing: %v", err)
	s.publisher.Publish(telemetry.NewClientError(err, "session", telemetry.ErrorSeverityCritical))
	s.publisher.Publish(telemetry.NewConnectionStateChanged("", StateFailing.String()))
}

// closeConn closes the live connection, if any, detaching its handlers.
func (s *Session) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// awaitRestart blocks until SetRunning(true) or ctx is done.
func (s *Session) awaitRestart(ctx context.Context) bool {
	for {
		if s.running.Load() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-s.restart:
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
