package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mahaj/topic-chat/pkg/db"
	"github.com/mahaj/topic-chat/pkg/model"
	"github.com/mahaj/topic-chat/pkg/snowflake"
)

// ScyllaStore persists messages in ScyllaDB. Group messages partition by
// room, private messages by the sorted username pair; both cluster ascending
// on the snowflake id, which is the store-order token.
type ScyllaStore struct {
	session *db.Session
	ids     *snowflake.Node
}

func NewScyllaStore(session *db.Session, ids *snowflake.Node) *ScyllaStore {
	return &ScyllaStore{session: session, ids: ids}
}

// PairKey builds the partition key for a private conversation. Sorting the
// usernames makes the key identical for both directions of the pair.
func PairKey(u1, u2 string) string {
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	return u1 + ":" + u2
}

func (s *ScyllaStore) AppendGroup(ctx context.Context, msg model.GroupMessage) (model.GroupMessage, error) {
	msg.ID = s.ids.Generate()
	msg.SentAt = time.Now().UTC()

	err := s.session.Query(
		`INSERT INTO group_messages (room, id, from_user, message, sent_at) VALUES (?, ?, ?, ?, ?)`,
		msg.Room, msg.ID, msg.FromUser, msg.Message, msg.SentAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.GroupMessage{}, fmt.Errorf("append group message: %w", err)
	}
	return msg, nil
}

func (s *ScyllaStore) AppendPrivate(ctx context.Context, msg model.PrivateMessage) (model.PrivateMessage, error) {
	msg.ID = s.ids.Generate()
	msg.SentAt = time.Now().UTC()

	err := s.session.Query(
		`INSERT INTO private_messages (pair, id, from_user, to_user, message, sent_at) VALUES (?, ?, ?, ?, ?, ?)`,
		PairKey(msg.FromUser, msg.ToUser), msg.ID, msg.FromUser, msg.ToUser, msg.Message, msg.SentAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.PrivateMessage{}, fmt.Errorf("append private message: %w", err)
	}
	return msg, nil
}

func (s *ScyllaStore) GroupHistory(ctx context.Context, room string, limit int) ([]model.GroupMessage, error) {
	iter := s.session.Query(
		`SELECT room, id, from_user, message, sent_at FROM group_messages WHERE room = ? LIMIT ?`,
		room, limit,
	).WithContext(ctx).Iter()

	messages := make([]model.GroupMessage, 0)
	var m model.GroupMessage
	for iter.Scan(&m.Room, &m.ID, &m.FromUser, &m.Message, &m.SentAt) {
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("read group history: %w", err)
	}
	return messages, nil
}

func (s *ScyllaStore) PrivateHistory(ctx context.Context, u1, u2 string, limit int) ([]model.PrivateMessage, error) {
	iter := s.session.Query(
		`SELECT id, from_user, to_user, message, sent_at FROM private_messages WHERE pair = ? LIMIT ?`,
		PairKey(u1, u2), limit,
	).WithContext(ctx).Iter()

	messages := make([]model.PrivateMessage, 0)
	var m model.PrivateMessage
	for iter.Scan(&m.ID, &m.FromUser, &m.ToUser, &m.Message, &m.SentAt) {
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("read private history: %w", err)
	}
	return messages, nil
}
