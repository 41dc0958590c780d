package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"location-tracker/pkg/transport"
)

// ErrDialRefused is returned by FakeDialer for scripted connect failures.
var ErrDialRefused = errors.New("fake dial refused")

// Responder decides how a fake server answers an emitted event.
// Returning ok=false means the server stays silent.
type Responder func(event string, payload any) (replyEvent string, reply any, ok bool)

// Echo answers every emit of event with replyEvent carrying the same payload.
func Echo(event, replyEvent string) Responder {
	return func(ev string, payload any) (string, any, bool) {
		if ev != event {
			return "", nil, false
		}
		return replyEvent, payload, true
	}
}

// FakeConn implements transport.Conn in memory.
type FakeConn struct {
	url        string
	dispatcher *transport.Dispatcher
	responder  Responder

	mu      sync.Mutex
	emitted []transport.Frame
	err     error

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func NewFakeConn(url string, responder Responder) *FakeConn {
	return &FakeConn{
		url:        url,
		dispatcher: transport.NewDispatcher(),
		responder:  responder,
		done:       make(chan struct{}),
	}
}

func (f *FakeConn) URL() string           { return f.url }
func (f *FakeConn) Done() <-chan struct{} { return f.done }

func (f *FakeConn) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *FakeConn) Once(event string) *transport.Reply { return f.dispatcher.Once(event) }

func (f *FakeConn) Emit(ctx context.Context, event string, payload any) error {
	select {
	case <-f.done:
		return f.Err()
	default:
	}
	f.mu.Lock()
	f.emitted = append(f.emitted, transport.Frame{Event: event, Data: payload})
	f.mu.Unlock()

	if f.responder == nil {
		return nil
	}
	replyEvent, reply, ok := f.responder(event, payload)
	if !ok {
		return nil
	}
	b, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	go f.Deliver(replyEvent, b)
	return nil
}

// Deliver injects an inbound event as if the server had sent it.
// It reports whether an armed handler consumed it.
func (f *FakeConn) Deliver(event string, data json.RawMessage) bool {
	if f.closed.Load() {
		return false
	}
	return f.dispatcher.Dispatch(event, data)
}

// Break simulates the connection dropping with err.
func (f *FakeConn) Break(err error) { f.finish(err) }

func (f *FakeConn) Close() error {
	f.dispatcher.Clear()
	f.finish(transport.ErrClosed)
	return nil
}

func (f *FakeConn) finish(err error) {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		f.closed.Store(true)
		close(f.done)
	})
}

// Closed reports whether Close or Break was called.
func (f *FakeConn) Closed() bool { return f.closed.Load() }

// Pending returns the number of armed handlers for event.
func (f *FakeConn) Pending(event string) int { return f.dispatcher.Pending(event) }

// Emitted returns a copy of every frame sent so far.
func (f *FakeConn) Emitted() []transport.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Frame, len(f.emitted))
	copy(out, f.emitted)
	return out
}

// FakeDialer implements transport.Dialer with scripted failures per URL.
type FakeDialer struct {
	Responder Responder

	mu     sync.Mutex
	fail   map[string]int
	script map[string][]error
	dials  []string
	conns  []*FakeConn
}

func NewFakeDialer(responder Responder) *FakeDialer {
	return &FakeDialer{Responder: responder, fail: make(map[string]int), script: make(map[string][]error)}
}

// Script queues one outcome per upcoming dial to url; nil succeeds. Scripted
// outcomes are consumed before FailNext counts apply.
func (d *FakeDialer) Script(url string, outcomes ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script[url] = append(d.script[url], outcomes...)
}

// FailNext makes the next n dials to url fail. A negative n fails forever.
func (d *FakeDialer) FailNext(url string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[url] = n
}

func (d *FakeDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, url)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if queued := d.script[url]; len(queued) > 0 {
		d.script[url] = queued[1:]
		if queued[0] != nil {
			return nil, queued[0]
		}
		return d.connect(url), nil
	}
	if n := d.fail[url]; n != 0 {
		if n > 0 {
			d.fail[url] = n - 1
		}
		return nil, ErrDialRefused
	}
	return d.connect(url), nil
}

func (d *FakeDialer) connect(url string) *FakeConn {
	c := NewFakeConn(url, d.Responder)
	d.conns = append(d.conns, c)
	return c
}

// Dials returns every URL dialed, in order.
func (d *FakeDialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.dials))
	copy(out, d.dials)
	return out
}

// Conns returns every connection handed out, in order.
func (d *FakeDialer) Conns() []*FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*FakeConn, len(d.conns))
	copy(out, d.conns)
	return out
}

// Last returns the most recent connection, or nil.
func (d *FakeDialer) Last() *FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}
