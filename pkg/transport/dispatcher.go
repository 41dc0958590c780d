package transport

import (
	"encoding/json"

	"github.com/puzpuzpuz/xsync/v3"
)

// Reply is a single-use handler armed for one event name. It fires at most
// once; after firing, or after Cancel, it no longer receives anything.
type Reply struct {
	event string
	ch    chan json.RawMessage
	d     *Dispatcher
}

// C delivers the payload of the matched event.
func (r *Reply) C() <-chan json.RawMessage { return r.ch }

// Cancel detaches the reply if it has not fired yet.
func (r *Reply) Cancel() { r.d.remove(r) }

// Dispatcher routes incoming events to armed replies. Each event name keeps
// a FIFO of replies; an event fires the oldest one and removes it. Events
// nobody is waiting for are dropped.
type Dispatcher struct {
	handlers *xsync.MapOf[string, []*Reply]
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: xsync.NewMapOf[string, []*Reply]()}
}

// Once arms a new reply for event.
func (d *Dispatcher) Once(event string) *Reply {
	r := &Reply{event: event, ch: make(chan json.RawMessage, 1), d: d}
	d.handlers.Compute(event, func(old []*Reply, loaded bool) ([]*Reply, bool) {
		next := make([]*Reply, 0, len(old)+1)
		next = append(next, old...)
		return append(next, r), false
	})
	return r
}

// Dispatch hands data to the oldest reply armed for event and reports
// whether one was waiting.
func (d *Dispatcher) Dispatch(event string, data json.RawMessage) bool {
	var target *Reply
	d.handlers.Compute(event, func(old []*Reply, loaded bool) ([]*Reply, bool) {
		if len(old) == 0 {
			return nil, true
		}
		target = old[0]
		rest := old[1:]
		return rest, len(rest) == 0
	})
	if target == nil {
		return false
	}
	// buffered with capacity one and removed above, so this never blocks
	target.ch <- data
	return true
}

// Pending returns how many replies are armed for event.
func (d *Dispatcher) Pending(event string) int {
	v, _ := d.handlers.Load(event)
	return len(v)
}

// Clear detaches every armed reply.
func (d *Dispatcher) Clear() { d.handlers.Clear() }

func (d *Dispatcher) remove(r *Reply) {
	d.handlers.Compute(r.event, func(old []*Reply, loaded bool) ([]*Reply, bool) {
		next := make([]*Reply, 0, len(old))
		for _, h := range old {
			if h != r {
				next = append(next, h)
			}
		}
		return next, len(next) == 0
	})
}
