package session

import "errors"

var (
	// ErrBothEndpointsDown is reported when a probing cycle finds neither
	// endpoint reachable.
	ErrBothEndpointsDown = errors.New("both servers unavailable")

	// ErrFailoverExhausted is reported when the alternate endpoint also used
	// up its reconnection budget.
	ErrFailoverExhausted = errors.New("failover exhausted")

	// ErrAlreadyStarted is returned by Start on a session that is running.
	ErrAlreadyStarted = errors.New("session already started")

	errBudgetExhausted = errors.New("reconnection attempts exhausted")
)

// State is the connection manager's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateConnected
	StateFailing
	StateSwitchingEndpoint
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateConnected:
		return "connected"
	case StateFailing:
		return "failing"
	case StateSwitchingEndpoint:
		return "switching_endpoint"
	default:
		return "unknown"
	}
}
