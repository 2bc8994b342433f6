package fanout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahaj/topic-chat/pkg/model"
	"github.com/mahaj/topic-chat/pkg/presence"
	"github.com/mahaj/topic-chat/pkg/store"
)

var testRooms = []string{"sports", "devops", "covid19"}

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []model.Event
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(e model.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *fakeConn) received(kind model.EventType) []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Event
	for _, e := range c.events {
		if e.Event == kind {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type failingStore struct {
	store.MessageStore
}

func (failingStore) AppendGroup(context.Context, model.GroupMessage) (model.GroupMessage, error) {
	return model.GroupMessage{}, errors.New("disk full")
}

func (failingStore) AppendPrivate(context.Context, model.PrivateMessage) (model.PrivateMessage, error) {
	return model.PrivateMessage{}, errors.New("disk full")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(messages store.MessageStore) (*Engine, *presence.Registry) {
	registry := presence.NewRegistry()
	return NewEngine(testRooms, registry, messages, nil, discardLogger()), registry
}

func connect(e *Engine, id string) (*fakeConn, *Session) {
	conn := &fakeConn{id: id}
	return conn, e.Connect(conn)
}

func Test_Join_Confirms_To_Initiator_Only(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(store.NewMemoryStore())

	alice, aliceSess := connect(engine, "conn-a")
	bob, bobSess := connect(engine, "conn-b")
	engine.Join(bobSess, "sports")
	engine.Join(aliceSess, "sports")

	joined := alice.received(model.EventJoinedRoom)
	req.Len(joined, 1)
	req.Equal("sports", joined[0].Data)
	req.Len(bob.received(model.EventJoinedRoom), 1) // only bob's own join
}

func Test_Join_Unknown_Room_Silently_Dropped(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(store.NewMemoryStore())

	conn, sess := connect(engine, "conn-a")
	engine.Join(sess, "not-a-real-room")

	req.Zero(conn.total())
	req.Equal("", sess.Room())
}

func Test_Join_Switching_Rooms_Keeps_Single_Membership(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(store.NewMemoryStore())

	conn, sess := connect(engine, "conn-a")
	engine.Join(sess, "sports")
	engine.Join(sess, "devops")
	req.Equal("devops", sess.Room())

	// A broadcast in the old room must not reach the connection.
	sender, senderSess := connect(engine, "conn-b")
	engine.Join(senderSess, "sports")
	engine.GroupMessage(context.Background(), senderSess, "sports", "bob", "anyone here?")

	req.Empty(conn.received(model.EventGroupMessage))
	req.Len(sender.received(model.EventGroupMessage), 1)

	engine.GroupMessage(context.Background(), senderSess, "sports", "bob", "guess not")
	engine.Join(senderSess, "devops")
	engine.GroupMessage(context.Background(), senderSess, "devops", "bob", "hello devops")
	req.Len(conn.received(model.EventGroupMessage), 1)
}

func Test_Leave_Mismatched_Room_Resets_Session_Without_Membership_Change(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(store.NewMemoryStore())

	conn, sess := connect(engine, "conn-a")
	engine.Join(sess, "sports")
	engine.Leave(sess, "devops")

	// Session is unjoined, confirmation named the requested room.
	req.Equal("", sess.Room())
	left := conn.received(model.EventLeftRoom)
	req.Len(left, 1)
	req.Equal("devops", left[0].Data)

	// Membership of sports was untouched by the mismatched leave, and the
	// next join still collapses it back to a single room.
	_, senderSess := connect(engine, "conn-b")
	engine.Join(senderSess, "sports")
	engine.GroupMessage(context.Background(), senderSess, "sports", "bob", "still there?")
	req.Len(conn.received(model.EventGroupMessage), 1)

	engine.Join(sess, "covid19")
	engine.GroupMessage(context.Background(), senderSess, "sports", "bob", "gone now")
	req.Len(conn.received(model.EventGroupMessage), 1)
}

func Test_Typing_Relayed_To_Other_Members_Only(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(store.NewMemoryStore())

	alice, aliceSess := connect(engine, "conn-a")
	bob, bobSess := connect(engine, "conn-b")
	engine.Join(aliceSess, "sports")
	engine.Join(bobSess, "sports")

	engine.Typing(aliceSess, "sports", "alice", true)

	req.Empty(alice.received(model.EventTyping))
	typing := bob.received(model.EventTyping)
	req.Len(typing, 1)
	req.Equal(model.TypingPayload{Username: "alice", IsTyping: true}, typing[0].Data)
}

func Test_Typing_Without_Broadcast_Target_Vanishes(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(store.NewMemoryStore())

	alice, aliceSess := connect(engine, "conn-a")
	bob, bobSess := connect(engine, "conn-b")
	engine.Join(bobSess, "sports")
	before := bob.total()

	engine.Typing(aliceSess, "", "alice", true)
	engine.Typing(aliceSess, "no-such-room", "alice", true)

	req.Equal(before, bob.total())
	req.Zero(alice.total())
}

func Test_GroupMessage_Broadcasts_Stored_Record_Including_Sender(t *testing.T) {
	req := require.New(t)
	messages := store.NewMemoryStore()
	engine, _ := newTestEngine(messages)

	alice, aliceSess := connect(engine, "conn-a")
	bob, bobSess := connect(engine, "conn-b")
	engine.Join(aliceSess, "sports")
	engine.Join(bobSess, "sports")

	engine.GroupMessage(context.Background(), aliceSess, "sports", "alice", "hello")

	aliceGot := alice.received(model.EventGroupMessage)
	bobGot := bob.received(model.EventGroupMessage)
	req.Len(aliceGot, 1)
	req.Len(bobGot, 1)

	stored := aliceGot[0].Data.(model.GroupMessage)
	req.Equal("alice", stored.FromUser)
	req.Equal("sports", stored.Room)
	req.Equal("hello", stored.Message)
	req.NotZero(stored.ID)
	req.False(stored.SentAt.IsZero())

	// Both deliveries carry the identical persisted form.
	req.Equal(stored, bobGot[0].Data.(model.GroupMessage))
}

func Test_GroupMessage_Invalid_Input_Silently_Dropped(t *testing.T) {
	req := require.New(t)
	messages := store.NewMemoryStore()
	engine, _ := newTestEngine(messages)

	conn, sess := connect(engine, "conn-a")
	engine.Join(sess, "sports")
	before := conn.total()

	engine.GroupMessage(context.Background(), sess, "not-a-real-room", "alice", "hi")
	engine.GroupMessage(context.Background(), sess, "sports", "", "hi")
	engine.GroupMessage(context.Background(), sess, "sports", "alice", "")

	req.Equal(before, conn.total())
	history, err := messages.GroupHistory(context.Background(), "sports", 10)
	req.NoError(err)
	req.Empty(history)
}

func Test_GroupMessage_Store_Failure_Notifies_Sender_Only(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(failingStore{})

	alice, aliceSess := connect(engine, "conn-a")
	bob, bobSess := connect(engine, "conn-b")
	engine.Join(aliceSess, "sports")
	engine.Join(bobSess, "sports")

	engine.GroupMessage(context.Background(), aliceSess, "sports", "alice", "hello")

	req.Empty(alice.received(model.EventGroupMessage))
	req.Empty(bob.received(model.EventGroupMessage))
	req.Empty(bob.received(model.EventErrorMessage))

	failure := alice.received(model.EventErrorMessage)
	req.Len(failure, 1)
	req.Equal(model.ErrorPayload{Message: "Failed to send group message."}, failure[0].Data)
}

func Test_GroupMessage_Persists_In_Call_Order(t *testing.T) {
	req := require.New(t)
	messages := store.NewMemoryStore()
	engine, _ := newTestEngine(messages)

	_, aliceSess := connect(engine, "conn-a")
	_, bobSess := connect(engine, "conn-b")
	engine.Join(aliceSess, "sports")
	engine.Join(bobSess, "sports")

	engine.GroupMessage(context.Background(), aliceSess, "sports", "alice", "first")
	engine.GroupMessage(context.Background(), bobSess, "sports", "bob", "second")

	history, err := messages.GroupHistory(context.Background(), "sports", 10)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("first", history[0].Message)
	req.Equal("second", history[1].Message)
	req.Less(history[0].ID, history[1].ID)
}

func Test_PrivateMessage_Offline_Recipient_Stored_Not_Delivered(t *testing.T) {
	req := require.New(t)
	messages := store.NewMemoryStore()
	engine, _ := newTestEngine(messages)

	alice, aliceSess := connect(engine, "conn-a")
	engine.Register(aliceSess, "alice")

	engine.PrivateMessage(context.Background(), aliceSess, "alice", "bob", "you around?")

	// Sender always gets the echo; nothing else is delivered anywhere.
	req.Len(alice.received(model.EventPrivateMessage), 1)
	req.Empty(alice.received(model.EventErrorMessage))

	history, err := messages.PrivateHistory(context.Background(), "bob", "alice", 10)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("you around?", history[0].Message)
}

func Test_PrivateMessage_Online_Recipient_Both_Get_Identical_Record(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(store.NewMemoryStore())

	alice, aliceSess := connect(engine, "conn-a")
	bob, bobSess := connect(engine, "conn-b")
	engine.Register(aliceSess, "alice")
	engine.Register(bobSess, "bob")

	engine.PrivateMessage(context.Background(), aliceSess, "alice", "bob", "hey")

	aliceGot := alice.received(model.EventPrivateMessage)
	bobGot := bob.received(model.EventPrivateMessage)
	req.Len(aliceGot, 1)
	req.Len(bobGot, 1)
	req.Equal(aliceGot[0].Data, bobGot[0].Data)

	stored := aliceGot[0].Data.(model.PrivateMessage)
	req.Equal("alice", stored.FromUser)
	req.Equal("bob", stored.ToUser)
	req.NotZero(stored.ID)
}

func Test_PrivateMessage_Store_Failure_Notifies_Sender_Only(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(failingStore{})

	alice, aliceSess := connect(engine, "conn-a")
	bob, bobSess := connect(engine, "conn-b")
	engine.Register(aliceSess, "alice")
	engine.Register(bobSess, "bob")

	engine.PrivateMessage(context.Background(), aliceSess, "alice", "bob", "hey")

	req.Empty(alice.received(model.EventPrivateMessage))
	req.Zero(bob.total())
	req.Len(alice.received(model.EventErrorMessage), 1)
}

func Test_Register_Last_Connection_Wins(t *testing.T) {
	req := require.New(t)
	engine, registry := newTestEngine(store.NewMemoryStore())

	oldTab, oldSess := connect(engine, "conn-old")
	newTab, newSess := connect(engine, "conn-new")
	engine.Register(oldSess, "alice")
	engine.Register(newSess, "alice")

	connID, ok := registry.Lookup("alice")
	req.True(ok)
	req.Equal("conn-new", connID)

	// Private delivery follows the registry: only the latest tab receives.
	_, bobSess := connect(engine, "conn-b")
	engine.Register(bobSess, "bob")
	engine.PrivateMessage(context.Background(), bobSess, "bob", "alice", "ping")

	req.Zero(oldTab.total())
	req.Len(newTab.received(model.EventPrivateMessage), 1)
}

func Test_Disconnect_Cleans_Presence_And_Membership(t *testing.T) {
	req := require.New(t)
	engine, registry := newTestEngine(store.NewMemoryStore())

	conn, sess := connect(engine, "conn-a")
	engine.Register(sess, "alice")
	engine.Join(sess, "sports")
	engine.Disconnect(sess)

	_, ok := registry.Lookup("alice")
	req.False(ok)

	sender, senderSess := connect(engine, "conn-b")
	engine.Join(senderSess, "sports")
	engine.GroupMessage(context.Background(), senderSess, "sports", "bob", "hello?")
	req.Empty(conn.received(model.EventGroupMessage))
	req.Len(sender.received(model.EventGroupMessage), 1)
}

func Test_Superseded_Connection_Disconnect_Keeps_New_Registration(t *testing.T) {
	req := require.New(t)
	engine, registry := newTestEngine(store.NewMemoryStore())

	_, oldSess := connect(engine, "conn-old")
	_, newSess := connect(engine, "conn-new")
	engine.Register(oldSess, "alice")
	engine.Register(newSess, "alice")

	engine.Disconnect(oldSess)

	connID, ok := registry.Lookup("alice")
	req.True(ok)
	req.Equal("conn-new", connID)
}

func Test_EndToEnd_Room_Conversation(t *testing.T) {
	req := require.New(t)
	messages := store.NewMemoryStore()
	engine, _ := newTestEngine(messages)

	alice, aliceSess := connect(engine, "conn-a")
	engine.Register(aliceSess, "alice")
	engine.Join(aliceSess, "sports")

	bob, bobSess := connect(engine, "conn-b")
	engine.Register(bobSess, "bob")
	engine.Join(bobSess, "sports")

	engine.GroupMessage(context.Background(), aliceSess, "sports", "alice", "hello")

	for _, conn := range []*fakeConn{alice, bob} {
		got := conn.received(model.EventGroupMessage)
		req.Len(got, 1)
		stored := got[0].Data.(model.GroupMessage)
		req.Equal("alice", stored.FromUser)
		req.Equal("hello", stored.Message)
		req.Equal("sports", stored.Room)
		req.False(stored.SentAt.IsZero())
	}

	history, err := messages.GroupHistory(context.Background(), "sports", 10)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hello", history[0].Message)
}
