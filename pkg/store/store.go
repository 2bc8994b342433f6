// Package store persists delivered messages and serves bounded history
// reads. Appends are atomic: a record is either fully durable and returned
// in its stored form, or not stored at all.
package store

import (
	"context"

	"github.com/mahaj/topic-chat/pkg/model"
)

// MessageStore is the durable, append-only message log. Append calls assign
// the store-order token and server timestamp and return the stored record;
// history reads are ascending by token and capped at limit.
type MessageStore interface {
	AppendGroup(ctx context.Context, msg model.GroupMessage) (model.GroupMessage, error)
	AppendPrivate(ctx context.Context, msg model.PrivateMessage) (model.PrivateMessage, error)
	GroupHistory(ctx context.Context, room string, limit int) ([]model.GroupMessage, error)

	// PrivateHistory matches either direction of the unordered pair {u1,u2}.
	PrivateHistory(ctx context.Context, u1, u2 string, limit int) ([]model.PrivateMessage, error)
}
