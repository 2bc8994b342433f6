package store

import (
	"context"
	"sync"
	"time"

	"github.com/mahaj/topic-chat/pkg/model"
)

// MemoryStore keeps messages in process memory, ordered by an incrementing
// sequence counter. It is the default store when no Scylla hosts are
// configured, and the store the tests run against.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int64
	groups   []model.GroupMessage
	privates []model.PrivateMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AppendGroup(_ context.Context, msg model.GroupMessage) (model.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	msg.ID = s.seq
	msg.SentAt = time.Now().UTC()
	s.groups = append(s.groups, msg)
	return msg, nil
}

func (s *MemoryStore) AppendPrivate(_ context.Context, msg model.PrivateMessage) (model.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	msg.ID = s.seq
	msg.SentAt = time.Now().UTC()
	s.privates = append(s.privates, msg)
	return msg, nil
}

func (s *MemoryStore) GroupHistory(_ context.Context, room string, limit int) ([]model.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.GroupMessage, 0)
	for _, m := range s.groups {
		if m.Room != room {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) PrivateHistory(_ context.Context, u1, u2 string, limit int) ([]model.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.PrivateMessage, 0)
	for _, m := range s.privates {
		if !(m.FromUser == u1 && m.ToUser == u2) && !(m.FromUser == u2 && m.ToUser == u1) {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
