package main

import (
	"net/http"

	"github.com/mahaj/topic-chat/pkg/model"
)

// historyLimit caps both history read paths. Older messages past the cap are
// not reachable through this surface.
const historyLimit = 200

// groupHistoryHandler serves GET /api/messages/group/{room}: up to 200 group
// messages in ascending store order.
func (s *server) groupHistoryHandler(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	if room == "" {
		writeError(w, http.StatusBadRequest, "room required")
		return
	}

	messages, err := s.messages.GroupHistory(r.Context(), room, historyLimit)
	if err != nil {
		s.log.Error("group history read failed", "room", room, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, map[string][]model.GroupMessage{"messages": messages})
}

// privateHistoryHandler serves GET /api/messages/private?u1=&u2=: up to 200
// messages between the pair, either direction, ascending store order.
func (s *server) privateHistoryHandler(w http.ResponseWriter, r *http.Request) {
	u1 := r.URL.Query().Get("u1")
	u2 := r.URL.Query().Get("u2")
	if u1 == "" || u2 == "" {
		writeError(w, http.StatusBadRequest, "user 1 and user 2 required")
		return
	}

	messages, err := s.messages.PrivateHistory(r.Context(), u1, u2, historyLimit)
	if err != nil {
		s.log.Error("private history read failed", "u1", u1, "u2", u2, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, map[string][]model.PrivateMessage{"messages": messages})
}

func (s *server) roomsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"rooms": s.rooms})
}

// presenceHandler lists the usernames currently registered on a live
// connection.
func (s *server) presenceHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"online": s.registry.Online()})
}
