// Package presence tracks the live binding of usernames to connections,
// used for private-message routing.
package presence

import (
	"sync"

	"github.com/samber/lo"
)

// Registry maps a username to its single active connection id. A second
// connection registering the same username silently replaces the mapping;
// the prior connection stays transport-connected but presence-invisible.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]string // username -> connection id
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]string)}
}

// Register binds username to connID, overwriting any existing mapping.
// Last writer wins; there is no error condition.
func (r *Registry) Register(username, connID string) {
	r.mu.Lock()
	r.byUser[username] = connID
	r.mu.Unlock()
}

// Lookup resolves a username to its connection id, if currently registered.
func (r *Registry) Lookup(username string) (string, bool) {
	r.mu.RLock()
	connID, ok := r.byUser[username]
	r.mu.RUnlock()
	return connID, ok
}

// Remove deletes the entry owned by connID, found by reverse scan. A no-op
// when no entry points at connID, which covers double-disconnect and
// never-registered connections — and keeps a superseded connection's
// disconnect from evicting the registration that replaced it.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for username, id := range r.byUser {
		if id == connID {
			delete(r.byUser, username)
			break
		}
	}
}

// Online returns a snapshot of currently registered usernames.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.byUser)
}
