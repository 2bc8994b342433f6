package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahaj/topic-chat/pkg/model"
)

func Test_AppendGroup_Assigns_Increasing_Order_Tokens(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.AppendGroup(ctx, model.GroupMessage{Room: "sports", FromUser: "alice", Message: "a"})
	req.NoError(err)
	second, err := s.AppendGroup(ctx, model.GroupMessage{Room: "sports", FromUser: "bob", Message: "b"})
	req.NoError(err)

	req.Less(first.ID, second.ID)
	req.False(first.SentAt.IsZero())
}

func Test_GroupHistory_Filters_By_Room_Ascending(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.AppendGroup(ctx, model.GroupMessage{Room: "sports", FromUser: "alice", Message: fmt.Sprintf("s%d", i)})
		req.NoError(err)
		_, err = s.AppendGroup(ctx, model.GroupMessage{Room: "devops", FromUser: "bob", Message: fmt.Sprintf("d%d", i)})
		req.NoError(err)
	}

	history, err := s.GroupHistory(ctx, "sports", 10)
	req.NoError(err)
	req.Len(history, 3)
	for i, m := range history {
		req.Equal("sports", m.Room)
		req.Equal(fmt.Sprintf("s%d", i), m.Message)
	}

	empty, err := s.GroupHistory(ctx, "no-such-room", 10)
	req.NoError(err)
	req.Empty(empty)
}

func Test_GroupHistory_Caps_At_Limit_Oldest_First(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.AppendGroup(ctx, model.GroupMessage{Room: "sports", FromUser: "alice", Message: fmt.Sprintf("m%d", i)})
		req.NoError(err)
	}

	history, err := s.GroupHistory(ctx, "sports", 2)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("m0", history[0].Message)
	req.Equal("m1", history[1].Message)
}

func Test_PrivateHistory_Matches_Both_Directions(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.AppendPrivate(ctx, model.PrivateMessage{FromUser: "alice", ToUser: "bob", Message: "hi bob"})
	req.NoError(err)
	_, err = s.AppendPrivate(ctx, model.PrivateMessage{FromUser: "bob", ToUser: "alice", Message: "hi alice"})
	req.NoError(err)
	_, err = s.AppendPrivate(ctx, model.PrivateMessage{FromUser: "alice", ToUser: "carol", Message: "other pair"})
	req.NoError(err)

	forward, err := s.PrivateHistory(ctx, "alice", "bob", 10)
	req.NoError(err)
	reverse, err := s.PrivateHistory(ctx, "bob", "alice", 10)
	req.NoError(err)

	req.Len(forward, 2)
	req.Equal(forward, reverse)
	req.Equal("hi bob", forward[0].Message)
	req.Equal("hi alice", forward[1].Message)
}

func Test_PairKey_Is_Direction_Independent(t *testing.T) {
	req := require.New(t)
	req.Equal(PairKey("alice", "bob"), PairKey("bob", "alice"))
	req.Equal("alice:bob", PairKey("bob", "alice"))
}
