package model

import "encoding/json"

type EventType string

// Inbound event kinds (connection -> engine).
const (
	EventRegister       EventType = "register"
	EventJoinRoom       EventType = "join_room"
	EventLeaveRoom      EventType = "leave_room"
	EventTyping         EventType = "typing"
	EventGroupMessage   EventType = "group_message"
	EventPrivateMessage EventType = "private_message"
)

// Outbound event kinds (engine -> connection).
const (
	EventJoinedRoom   EventType = "joined_room"
	EventLeftRoom     EventType = "left_room"
	EventErrorMessage EventType = "error_message"
)

// Envelope is an inbound frame. Data stays raw until the dispatcher knows
// which payload type the event kind carries.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event is an outbound frame, marshaled as-is to the transport.
type Event struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

// TypingPayload carries a typing indicator. Room is set inbound only; the
// relayed copy omits it because recipients already know their room.
type TypingPayload struct {
	Room     string `json:"room,omitempty"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type GroupMessagePayload struct {
	Room     string `json:"room"`
	FromUser string `json:"from_user"`
	Message  string `json:"message"`
}

type PrivateMessagePayload struct {
	FromUser string `json:"from_user"`
	ToUser   string `json:"to_user"`
	Message  string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
