// Package fanout is the presence and message-fanout engine: it owns the
// per-connection sessions, enforces single-room membership, routes group and
// private messages, and persists every delivered message.
package fanout

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mahaj/topic-chat/pkg/model"
	"github.com/mahaj/topic-chat/pkg/presence"
	"github.com/mahaj/topic-chat/pkg/store"
)

// Archiver receives a copy of every persisted message, best-effort.
type Archiver interface {
	ArchiveGroup(ctx context.Context, msg model.GroupMessage)
	ArchivePrivate(ctx context.Context, msg model.PrivateMessage)
}

// Engine routes events from live connections. The lock guards sessions and
// room membership only; persistence runs outside it and broadcasts work from
// a membership snapshot, so one connection's hung store call never stalls
// another's traffic.
type Engine struct {
	mu       sync.RWMutex
	rooms    map[string]map[Conn]struct{} // fixed key set, from config
	sessions map[string]*Session          // connection id -> session

	registry *presence.Registry
	store    store.MessageStore
	archive  Archiver // optional
	log      *slog.Logger
}

func NewEngine(rooms []string, registry *presence.Registry, messages store.MessageStore, archive Archiver, log *slog.Logger) *Engine {
	membership := make(map[string]map[Conn]struct{}, len(rooms))
	for _, room := range rooms {
		membership[room] = make(map[Conn]struct{})
	}
	return &Engine{
		rooms:    membership,
		sessions: make(map[string]*Session),
		registry: registry,
		store:    messages,
		archive:  archive,
		log:      log,
	}
}

// Connect creates the session for a new connection.
func (e *Engine) Connect(conn Conn) *Session {
	s := &Session{conn: conn}
	e.mu.Lock()
	e.sessions[conn.ID()] = s
	e.mu.Unlock()
	return s
}

// Register binds a username to the session's connection. Registering a name
// already held by another connection silently replaces that mapping.
func (e *Engine) Register(s *Session, username string) {
	if username == "" {
		return
	}
	e.mu.Lock()
	s.username = username
	e.mu.Unlock()
	e.registry.Register(username, s.conn.ID())
	e.log.Info("user registered", "username", username, "conn", s.conn.ID())
}

// Join moves the session into room, leaving any current membership first so
// the connection is never in two broadcast groups at once. Unknown rooms are
// dropped without an error event. Only the joining connection is notified.
func (e *Engine) Join(s *Session, room string) {
	e.mu.Lock()
	members, ok := e.rooms[room]
	if !ok {
		e.mu.Unlock()
		e.log.Debug("join for unknown room dropped", "room", room, "conn", s.conn.ID())
		return
	}
	for _, set := range e.rooms {
		delete(set, s.conn)
	}
	members[s.conn] = struct{}{}
	s.room = room
	e.mu.Unlock()

	s.conn.Send(model.Event{Event: model.EventJoinedRoom, Data: room})
}

// Leave removes membership of the named room and resets the session to
// unjoined. The room argument is deliberately not checked against the
// session's current room; a mismatch is a membership no-op but the session
// still leaves its joined state.
func (e *Engine) Leave(s *Session, room string) {
	e.mu.Lock()
	if members, ok := e.rooms[room]; ok {
		delete(members, s.conn)
	}
	s.room = ""
	e.mu.Unlock()

	s.conn.Send(model.Event{Event: model.EventLeftRoom, Data: room})
}

// Typing relays a typing indicator to every other member of room. Nothing is
// stored and nothing is acknowledged; an empty or unknown room means there is
// no broadcast target and the event vanishes.
func (e *Engine) Typing(s *Session, room, username string, isTyping bool) {
	if room == "" {
		return
	}
	payload := model.TypingPayload{Username: username, IsTyping: isTyping}
	for _, conn := range e.members(room) {
		if conn != s.conn {
			conn.Send(model.Event{Event: model.EventTyping, Data: payload})
		}
	}
}

// GroupMessage persists a room message and broadcasts the stored record to
// every member of the room, sender included, so every client renders the
// authoritative server-assigned form. Validation failures drop silently; a
// store failure notifies only the sender.
func (e *Engine) GroupMessage(ctx context.Context, s *Session, room, fromUser, text string) {
	if room == "" || fromUser == "" || text == "" {
		return
	}
	if !e.validRoom(room) {
		e.log.Debug("group message for unknown room dropped", "room", room, "from", fromUser)
		return
	}

	stored, err := e.store.AppendGroup(ctx, model.GroupMessage{Room: room, FromUser: fromUser, Message: text})
	if err != nil {
		e.log.Error("group message persist failed", "room", room, "from", fromUser, "error", err)
		s.conn.Send(errorEvent("Failed to send group message."))
		return
	}
	if e.archive != nil {
		e.archive.ArchiveGroup(ctx, stored)
	}

	for _, conn := range e.members(room) {
		conn.Send(model.Event{Event: model.EventGroupMessage, Data: stored})
	}
}

// PrivateMessage persists a direct message and delivers the stored record to
// the sender always, and to the recipient only while presence resolves them
// to a live connection. An offline recipient is not an error: the message
// stays retrievable through history and the sender gets no online/offline
// signal either way.
func (e *Engine) PrivateMessage(ctx context.Context, s *Session, fromUser, toUser, text string) {
	if fromUser == "" || toUser == "" || text == "" {
		return
	}

	stored, err := e.store.AppendPrivate(ctx, model.PrivateMessage{FromUser: fromUser, ToUser: toUser, Message: text})
	if err != nil {
		e.log.Error("private message persist failed", "from", fromUser, "to", toUser, "error", err)
		s.conn.Send(errorEvent("Failed to send private message."))
		return
	}
	if e.archive != nil {
		e.archive.ArchivePrivate(ctx, stored)
	}

	s.conn.Send(model.Event{Event: model.EventPrivateMessage, Data: stored})

	if connID, ok := e.registry.Lookup(toUser); ok {
		if conn := e.connByID(connID); conn != nil {
			conn.Send(model.Event{Event: model.EventPrivateMessage, Data: stored})
		}
	}
}

// Disconnect tears the session down: implicit leave of any room, session
// removal, and presence cleanup. No confirmation is emitted; there is no
// connection left to receive one.
func (e *Engine) Disconnect(s *Session) {
	e.mu.Lock()
	for _, set := range e.rooms {
		delete(set, s.conn)
	}
	s.room = ""
	delete(e.sessions, s.conn.ID())
	e.mu.Unlock()

	e.registry.Remove(s.conn.ID())
	e.log.Info("connection closed", "conn", s.conn.ID(), "username", s.username)
}

func (e *Engine) validRoom(room string) bool {
	e.mu.RLock()
	_, ok := e.rooms[room]
	e.mu.RUnlock()
	return ok
}

// members snapshots a room's membership so sends happen outside the lock.
func (e *Engine) members(room string) []Conn {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set := e.rooms[room]
	conns := make([]Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

func (e *Engine) connByID(connID string) Conn {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if s, ok := e.sessions[connID]; ok {
		return s.conn
	}
	return nil
}

func errorEvent(message string) model.Event {
	return model.Event{Event: model.EventErrorMessage, Data: model.ErrorPayload{Message: message}}
}
