package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mahaj/topic-chat/pkg/fanout"
	"github.com/mahaj/topic-chat/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// wsClient is the middleman between one websocket connection and the fanout
// engine. It implements fanout.Conn.
type wsClient struct {
	srv     *server
	conn    *websocket.Conn
	session *fanout.Session

	// Buffered channel of outbound frames. closed guards against a send
	// racing the teardown in readPump.
	send   chan []byte
	mu     sync.Mutex
	closed bool

	id string
}

func (c *wsClient) ID() string { return c.id }

// Send marshals an outbound event and queues it without blocking. A full
// buffer means the client is too slow; the frame is dropped, matching the
// send-to-closed-connection no-op at disconnect.
func (c *wsClient) Send(event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.srv.log.Error("marshal outbound event failed", "event", event.Event, "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.srv.log.Warn("outbound buffer full, frame dropped", "conn", c.id, "event", event.Event)
	}
}

// readPump decodes inbound frames and dispatches them to the engine. One
// goroutine per connection; engine calls execute on it.
func (c *wsClient) readPump() {
	defer func() {
		c.srv.engine.Disconnect(c.session)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.srv.log.Warn("websocket read failed", "conn", c.id, "error", err)
			}
			break
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.srv.log.Debug("malformed frame dropped", "conn", c.id, "error", err)
			continue
		}
		c.dispatch(env)
	}
}

// dispatch maps an event kind to its typed payload and engine operation.
// Payloads that fail to decode are dropped, same as any other malformed
// input.
func (c *wsClient) dispatch(env model.Envelope) {
	ctx := context.Background()

	switch env.Event {
	case model.EventRegister:
		var username string
		if json.Unmarshal(env.Data, &username) == nil {
			c.srv.engine.Register(c.session, username)
		}
	case model.EventJoinRoom:
		var room string
		if json.Unmarshal(env.Data, &room) == nil {
			c.srv.engine.Join(c.session, room)
		}
	case model.EventLeaveRoom:
		var room string
		if json.Unmarshal(env.Data, &room) == nil {
			c.srv.engine.Leave(c.session, room)
		}
	case model.EventTyping:
		var p model.TypingPayload
		if json.Unmarshal(env.Data, &p) == nil {
			c.srv.engine.Typing(c.session, p.Room, p.Username, p.IsTyping)
		}
	case model.EventGroupMessage:
		var p model.GroupMessagePayload
		if json.Unmarshal(env.Data, &p) == nil {
			c.srv.engine.GroupMessage(ctx, c.session, p.Room, p.FromUser, p.Message)
		}
	case model.EventPrivateMessage:
		var p model.PrivateMessagePayload
		if json.Unmarshal(env.Data, &p) == nil {
			c.srv.engine.PrivateMessage(ctx, c.session, p.FromUser, p.ToUser, p.Message)
		}
	default:
		c.srv.log.Debug("unknown event dropped", "conn", c.id, "event", env.Event)
	}
}

// writePump pumps frames from the send channel to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWs authenticates and upgrades a websocket request.
func (s *server) serveWs(w http.ResponseWriter, r *http.Request) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		s.log.Debug("websocket auth rejected", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		srv:  s,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.NewString(),
	}
	client.session = s.engine.Connect(client)
	s.log.Info("websocket connected", "conn", client.id, "token_user", claims.Username)

	go client.writePump()
	go client.readPump()
}

// bearerToken pulls the JWT from the Authorization header, falling back to
// the token query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}
	return tokenString
}
