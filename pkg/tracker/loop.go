package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"location-tracker/pkg/recorder"
	"location-tracker/pkg/telemetry"
	"location-tracker/pkg/transport"
)

// ErrConnectionLost is returned by Run when the connection drops mid-loop.
var ErrConnectionLost = errors.New("connection lost")

// Loop sends a synthesized reading, waits for its single reply, records the
// round trip and goes again, one send in flight at a time. Reply waits are
// not bounded; a silent server stalls the loop until the connection drops or
// the context is cancelled.
type Loop struct {
	recorder  *recorder.Recorder
	running   func() bool
	publisher telemetry.TelemetryPublisher
	logger    *log.Logger
	rng       *rand.Rand

	mu       sync.RWMutex
	location *Location
	latency  *time.Duration
}

// NewLoop creates a loop recording into rec. running is consulted before
// every send; when it reports false the loop finishes the round trip in
// flight and returns.
func NewLoop(rec *recorder.Recorder, running func() bool, publisher telemetry.TelemetryPublisher, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if running == nil {
		running = func() bool { return true }
	}
	return &Loop{
		recorder:  rec,
		running:   running,
		publisher: telemetry.OrNoop(publisher),
		logger:    logger,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// SetRand replaces the jitter source.
func (l *Loop) SetRand(rng *rand.Rand) { l.rng = rng }

// Location returns the last location the server answered with.
func (l *Loop) Location() (Location, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.location == nil {
		return Location{}, false
	}
	return *l.location, true
}

// Latency returns the latency of the last completed round trip.
func (l *Loop) Latency() (time.Duration, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.latency == nil {
		return 0, false
	}
	return *l.latency, true
}

// Run drives round trips over conn starting from Seed. It returns nil when
// the running flag turned false, ctx.Err() on cancellation and a wrapped
// ErrConnectionLost when conn breaks. A cancelled context never records the
// reply that was in flight.
func (l *Loop) Run(ctx context.Context, conn transport.Conn) error {
	seed := Seed
	for l.running() {
		next, err := l.roundTrip(ctx, conn, seed)
		if err != nil {
			return err
		}
		seed = next
	}
	l.logger.Printf("telemetry loop on %s stopped", conn.URL())
	return nil
}

func (l *Loop) roundTrip(ctx context.Context, conn transport.Conn, seed Location) (Location, error) {
	reading := Perturb(seed, l.rng)

	reply := conn.Once(EventLocationUpdate)
	sentAt := time.Now()
	if err := conn.Emit(ctx, EventSendLocation, reading); err != nil {
		reply.Cancel()
		if ctx.Err() != nil {
			return seed, ctx.Err()
		}
		return seed, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	var raw json.RawMessage
	select {
	case <-ctx.Done():
		reply.Cancel()
		return seed, ctx.Err()
	case <-conn.Done():
		select {
		case raw = <-reply.C():
		default:
			reply.Cancel()
			return seed, fmt.Errorf("%w: %v", ErrConnectionLost, conn.Err())
		}
	case raw = <-reply.C():
	}
	latency := time.Since(sentAt)

	if ctx.Err() != nil {
		return seed, ctx.Err()
	}

	var loc Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		l.logger.Printf("malformed %s from %s: %v", EventLocationUpdate, conn.URL(), err)
		l.publisher.Publish(telemetry.NewClientError(err, "reply_decode", telemetry.ErrorSeverityWarning))
		return reading, nil
	}

	l.mu.Lock()
	l.location = &loc
	l.latency = &latency
	l.mu.Unlock()

	l.recorder.Append(recorder.Sample{Latitude: loc.Latitude, Longitude: loc.Longitude, Latency: latency})
	l.publisher.Publish(telemetry.NewRoundTripCompleted(conn.URL(), loc.Latitude, loc.Longitude, latency))
	return loc, nil
}
