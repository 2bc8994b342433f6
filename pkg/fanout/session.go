package fanout

import "github.com/mahaj/topic-chat/pkg/model"

// Conn is one live transport session. The websocket gateway implements it;
// tests use in-memory fakes. Send must never block: delivery to a slow or
// closing connection is dropped at the transport layer.
type Conn interface {
	ID() string
	Send(event model.Event)
}

// Session is the per-connection state the engine owns: the identity bound by
// a register event and the at-most-one room the connection is currently in.
// Fields are guarded by the engine's lock.
type Session struct {
	conn     Conn
	username string
	room     string
}

// Username returns the identity bound via register, or "" before one.
func (s *Session) Username() string {
	return s.username
}

// Room returns the current room, or "" when unjoined.
func (s *Session) Room() string {
	return s.room
}
