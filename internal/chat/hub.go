package chat

import (
	"strings"
	"sync"

	"github.com/UKHgit/meet-point/internal/domain"
	"github.com/UKHgit/meet-point/internal/port"
	"github.com/UKHgit/meet-point/pkg/logger"
)

const welcomeText = "Welcome! Join a room by name to start chatting. " +
	"You can change your display name at any time."

// Hub is the session coordinator: it owns the session table, dispatches
// decoded client commands to room operations, and runs the
// exactly-once disconnect cleanup. Transports hand it an Outbox per
// connection and feed it commands; they never touch room state
// directly.
type Hub struct {
	log      logger.Logger
	registry *Registry
	roster   port.Roster
	relay    port.Relay

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(log logger.Logger, registry *Registry, roster port.Roster) *Hub {
	return &Hub{
		log:      log.WithModule("hub"),
		registry: registry,
		roster:   roster,
		sessions: make(map[string]*Session),
	}
}

// SetRelay enables cross-instance mirroring of posted messages.
func (h *Hub) SetRelay(r port.Relay) { h.relay = r }

// Registry exposes the room registry for read-only transport surfaces.
func (h *Hub) Registry() *Registry { return h.registry }

// Roster exposes the online-user roster.
func (h *Hub) Roster() port.Roster { return h.roster }

// Register creates a session for a new connection and sends it the
// current room list plus a welcome notice. The display name defaults to
// a generated placeholder when empty.
func (h *Hub) Register(out Outbox, displayName string) *Session {
	s := newSession(out, strings.TrimSpace(displayName))

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	if err := h.roster.Add(s.Name()); err != nil {
		h.log.Errorf("roster add for %s: %v", s.Name(), err)
	}

	out.TryEnqueue(domain.NewRoomsEvent(h.registry.List()))
	out.TryEnqueue(domain.NewSystemEvent(welcomeText))

	h.log.Infof("session %s registered as %q", s.ID, s.Name())
	return s
}

// Dispatch applies one decoded command to the session's state. Every
// error stays local to the session: it is delivered as an error event
// and mutates nothing.
func (h *Hub) Dispatch(s *Session, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.JoinCommand:
		h.handleJoin(s, c)
	case domain.MessageCommand:
		h.handleMessage(s, c)
	case domain.RenameCommand:
		h.handleRename(s, c)
	case domain.TypingCommand:
		h.handleTyping(s)
	default:
		h.sendError(s, "bad_command", "unsupported command")
	}
}

// Disconnect tears a session down: deregisters it, leaves its room with
// a memberLeft broadcast, updates the roster, and closes the outbox.
// Safe to call from any goroutine and any number of times; cleanup runs
// exactly once even when an explicit leave races the transport-level
// disconnect.
func (h *Hub) Disconnect(s *Session) {
	s.closeOnce.Do(func() {
		h.mu.Lock()
		delete(h.sessions, s.ID)
		h.mu.Unlock()

		if roomName := s.RoomName(); roomName != "" {
			s.setRoom("")
			if room := h.registry.Get(roomName); room != nil {
				_, _, dead := room.Leave(s.ID)
				h.reap(dead)
			}
		}

		if err := h.roster.Remove(s.Name()); err != nil {
			h.log.Errorf("roster remove for %s: %v", s.Name(), err)
		}

		s.out.Close()
		h.log.Infof("session %s (%q) disconnected", s.ID, s.Name())
	})
}

// DeliverRemote injects a message relayed from a peer instance into the
// local room replica: it is stored and fanned out like a local post but
// never re-published to the relay.
func (h *Hub) DeliverRemote(roomName string, msg domain.Message) {
	room, created := h.registry.GetOrCreate(roomName)
	if created {
		h.broadcastAll(domain.NewRoomsEvent(h.registry.List()))
	}
	h.reap(room.Post(msg))
}

// SessionCount reports the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// PostExternal posts a message on behalf of a caller without a live
// session, e.g. the HTTP polling endpoint. The message goes through the
// same validation, storage, broadcast, and relay path as a session
// post.
func (h *Hub) PostExternal(roomName, author, text string, replyTo *domain.ReplyRef) (domain.Message, error) {
	roomName = NormalizeRoomName(roomName)
	if roomName == "" {
		return domain.Message{}, ErrEmptyRoom
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrEmptyText
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = "anonymous"
	}

	room, created := h.registry.GetOrCreate(roomName)
	if created {
		h.broadcastAll(domain.NewRoomsEvent(h.registry.List()))
	}

	msg := domain.NewMessage(room.Name(), author, text, replyTo)
	h.reap(room.Post(msg))

	if h.relay != nil {
		if err := h.relay.PublishMessage(room.Name(), msg); err != nil {
			h.log.Errorf("relay publish to %s: %v", room.Name(), err)
		}
	}
	return msg, nil
}

func (h *Hub) handleJoin(s *Session, cmd domain.JoinCommand) {
	roomName := NormalizeRoomName(cmd.Room)
	if roomName == "" {
		h.sendError(s, "empty_room", "room name is required")
		return
	}

	if !h.isLive(s.ID) {
		// The reader delivered a join after the session was torn down;
		// acting on it would create membership nobody cleans up.
		return
	}

	if name := strings.TrimSpace(cmd.DisplayName); name != "" && name != s.Name() {
		old := s.setName(name)
		h.updateRoster(old, name)
	}

	// Join is leave-then-join, never additive.
	h.leaveCurrentRoom(s)

	room, created := h.registry.GetOrCreate(roomName)
	if created {
		h.broadcastAll(domain.NewRoomsEvent(h.registry.List()))
	}

	// The room insert happens under the session table lock: a racing
	// disconnect either removes the session first, which prevents the
	// insert, or waits here and then observes the recorded room.
	h.mu.Lock()
	if _, live := h.sessions[s.ID]; !live {
		h.mu.Unlock()
		return
	}
	s.setRoom(room.Name())
	dead := room.Join(s.ID, s.Name(), s.out)
	h.mu.Unlock()
	h.reap(dead)
}

func (h *Hub) isLive(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[sessionID]
	return ok
}

func (h *Hub) handleMessage(s *Session, cmd domain.MessageCommand) {
	roomName := s.RoomName()
	if roomName == "" {
		h.sendError(s, "no_room", "join a room before sending messages")
		return
	}

	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		h.sendError(s, "empty_text", "message text must not be empty")
		return
	}

	room := h.registry.Get(roomName)
	if room == nil {
		h.sendError(s, "no_room", "room no longer exists")
		return
	}

	var replyTo *domain.ReplyRef
	if cmd.ReplyTo != nil {
		replyTo = domain.NewReplyRef(cmd.ReplyTo.Author, cmd.ReplyTo.Snippet)
	}

	msg := domain.NewMessage(room.Name(), s.Name(), text, replyTo)
	h.reap(room.Post(msg))

	if h.relay != nil {
		if err := h.relay.PublishMessage(room.Name(), msg); err != nil {
			h.log.Errorf("relay publish to %s: %v", room.Name(), err)
		}
	}
}

func (h *Hub) handleRename(s *Session, cmd domain.RenameCommand) {
	name := strings.TrimSpace(cmd.DisplayName)
	if name == "" {
		h.sendError(s, "bad_payload", "display name must not be empty")
		return
	}
	if name == s.Name() {
		return
	}

	old := s.setName(name)
	h.updateRoster(old, name)

	if roomName := s.RoomName(); roomName != "" {
		if room := h.registry.Get(roomName); room != nil {
			_, _, dead := room.Rename(s.ID, name)
			h.reap(dead)
		}
	}
}

func (h *Hub) handleTyping(s *Session) {
	roomName := s.RoomName()
	if roomName == "" {
		// Typing is ephemeral; outside a room there is nobody to tell.
		return
	}
	if room := h.registry.Get(roomName); room != nil {
		h.reap(room.SetTyping(s.ID))
	}
}

func (h *Hub) leaveCurrentRoom(s *Session) {
	roomName := s.RoomName()
	if roomName == "" {
		return
	}
	s.setRoom("")
	if room := h.registry.Get(roomName); room != nil {
		_, _, dead := room.Leave(s.ID)
		h.reap(dead)
	}
}

// reap runs the disconnect path for members whose outbox rejected a
// delivery. Stale membership must not persist, so an unwritable
// connection gets the same cleanup as an explicit disconnect.
func (h *Hub) reap(ids []string) {
	for _, id := range ids {
		h.mu.RLock()
		s := h.sessions[id]
		h.mu.RUnlock()
		if s != nil {
			h.log.Warnf("session %s unreachable, disconnecting", id)
			h.Disconnect(s)
		}
	}
}

func (h *Hub) broadcastAll(ev domain.Event) {
	h.mu.RLock()
	var dead []string
	for id, s := range h.sessions {
		if !s.out.TryEnqueue(ev) {
			dead = append(dead, id)
		}
	}
	h.mu.RUnlock()
	h.reap(dead)
}

func (h *Hub) updateRoster(oldName, newName string) {
	if err := h.roster.Remove(oldName); err != nil {
		h.log.Errorf("roster remove for %s: %v", oldName, err)
	}
	if err := h.roster.Add(newName); err != nil {
		h.log.Errorf("roster add for %s: %v", newName, err)
	}
}

func (h *Hub) sendError(s *Session, code, message string) {
	s.out.TryEnqueue(domain.NewErrorEvent(code, message))
}
