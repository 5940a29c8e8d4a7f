package gremlink

// EventKind discriminates connection-level notifications.
type EventKind uint8

const (
	// EventSocketError reports a transport failure. The connection is
	// unusable afterwards until reopened.
	EventSocketError EventKind = iota + 1

	// EventClosed reports that the transport session ended, whether by an
	// explicit Close or by the server hanging up.
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventSocketError:
		return "socket_error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a connection-level notification, emitted independently of any
// pending request. Err is set for EventSocketError.
type Event struct {
	Kind EventKind
	Err  error
}

// Events exposes connection-level notifications. The channel is buffered;
// when no one drains it, events are dropped rather than stalling dispatch.
func (c *Connection) Events() <-chan Event {
	return c.events
}

func (c *Connection) notify(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
