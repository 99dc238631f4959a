package mqtt

// State is the bridge's view of its broker connection.
type State int

const (
	// StateDisconnected means no session is established (initial, or lost).
	StateDisconnected State = iota

	// StateReconnecting means paho is retrying after a lost connection.
	StateReconnecting

	// StateConnected means the session is up and publishes are accepted.
	StateConnected

	// StateClosed means Close has been called; the client is not reusable.
	StateClosed
)

// stateChangeBuffer bounds undelivered notifications; older ones are dropped.
const stateChangeBuffer = 8

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// setState records a transition and notifies StateChanges listeners.
// Repeated states are not re-announced.
func (c *Client) setState(s State) {
	c.stateMu.Lock()
	if c.state == s || c.state == StateClosed {
		c.stateMu.Unlock()
		return
	}
	c.state = s
	c.stateMu.Unlock()

	c.notify(s)
}

// notify delivers s without blocking, evicting the oldest pending change
// when the listener is behind.
func (c *Client) notify(s State) {
	c.changesMu.Lock()
	defer c.changesMu.Unlock()
	if c.changes == nil {
		return
	}
	for {
		select {
		case c.changes <- s:
			return
		default:
		}
		select {
		case <-c.changes:
		default:
		}
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// StateChanges returns a channel receiving every state transition.
// The channel is closed by Close after the final StateClosed notification.
func (c *Client) StateChanges() <-chan State {
	return c.changesOut
}
