package transport

import (
	"context"
	"errors"
)

// ErrClosed is reported by a Conn that was closed locally.
var ErrClosed = errors.New("connection closed")

// Dialer opens event connections. A failed Dial is the connect_error event,
// a returned Conn is the connect event.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a persistent, bidirectional, event-based connection to one endpoint.
// The websocket implementation lives in this package; tests use testutil.FakeConn.
type Conn interface {
	// URL returns the endpoint this connection was dialed against.
	URL() string
	// Emit sends one named event carrying payload.
	Emit(ctx context.Context, event string, payload any) error
	// Once arms a single-use handler for the next event with this name.
	Once(event string) *Reply
	// Done is closed when the connection is no longer usable.
	Done() <-chan struct{}
	// Err reports why Done was closed. It is nil while the connection is live.
	Err() error
	// Close detaches every handler and closes the connection.
	Close() error
}
