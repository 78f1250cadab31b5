// Package httpapi exposes the polling fallback endpoints and the SSE
// stream. Both ride on the same hub as the websocket transport; the
// core never assumes push-only delivery.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/internal/domain"
	"github.com/UKHgit/meet-point/pkg/logger"
)

type postRequest struct {
	Room     string           `json:"room"`
	Username string           `json:"username"`
	Text     string           `json:"text"`
	ReplyTo  *domain.ReplyRef `json:"replyTo,omitempty"`
}

// HandleRooms serves GET /api/rooms with the current room list.
func HandleRooms(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]interface{}{"rooms": hub.Registry().List()})
	}
}

// HandleUsers serves GET /api/users with the online roster.
func HandleUsers(hub *chat.Hub, logg logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		users, err := hub.Roster().List()
		if err != nil {
			logg.Errorf("roster list: %v", err)
			http.Error(w, "roster unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"users": users})
	}
}

// HandleChat serves the polling fallback: GET returns a room's history
// snapshot, POST publishes a message through the hub.
func HandleChat(hub *chat.Hub, logg logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleHistory(hub, w, r)
		case http.MethodPost:
			handlePost(hub, logg, w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func handleHistory(hub *chat.Hub, w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		http.Error(w, "room parameter required", http.StatusBadRequest)
		return
	}

	messages := []domain.Message{}
	if room := hub.Registry().Get(roomName); room != nil {
		messages = room.History()
	}
	writeJSON(w, map[string]interface{}{
		"room":     chat.NormalizeRoomName(roomName),
		"messages": messages,
	})
}

func handlePost(hub *chat.Hub, logg logger.Logger, w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := hub.PostExternal(req.Room, req.Username, req.Text, req.ReplyTo)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyRoom) || errors.Is(err, chat.ErrEmptyText) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logg.Errorf("post via http: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "message": msg})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
