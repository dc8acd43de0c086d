package relay

import "sync/atomic"

// ConnState is the state of the producer or consumer side of the broker connection.
type ConnState uint32

// Connection states.
//
//	disconnected -> connecting -> ready
//	connecting   -> failed
//	ready        -> failed        (connection lost)
//	failed       -> connecting    (reconnect attempt)
//	failed       -> ready         (broker reconnected on its own)
//	any          -> disconnected  (Close)
const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateReady
	StateFailed
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// connection handles atomic state transitions.
type connection struct {
	state atomic.Uint32
}

func newConnection() *connection {
	return &connection{}
}

func (c *connection) get() ConnState {
	return ConnState(c.state.Load())
}

// transitionFrom moves to the new state if the current state is one of from.
func (c *connection) transitionFrom(to ConnState, from ...ConnState) bool {
	for _, f := range from {
		if c.state.CompareAndSwap(uint32(f), uint32(to)) {
			return true
		}
	}
	return false
}

// beginConnect claims a connection attempt. Only one caller wins.
func (c *connection) beginConnect() bool {
	return c.transitionFrom(StateConnecting, StateDisconnected, StateFailed)
}

func (c *connection) markReady() bool {
	return c.transitionFrom(StateReady, StateConnecting, StateFailed, StateDisconnected)
}

func (c *connection) markFailed() bool {
	return c.transitionFrom(StateFailed, StateConnecting, StateReady)
}

func (c *connection) markDisconnected() {
	c.state.Store(uint32(StateDisconnected))
}

func (c *connection) ready() bool {
	return c.get() == StateReady
}
