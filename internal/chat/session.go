package chat

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session is the server-side identity of one connected client. It lives
// exactly as long as its connection: the hub destroys it on disconnect
// and ids are never reused. A session is in at most one room at a time.
type Session struct {
	ID string

	out Outbox

	mu   sync.Mutex
	name string
	room string

	closeOnce sync.Once
}

func newSession(out Outbox, displayName string) *Session {
	id := uuid.NewString()
	if displayName == "" {
		displayName = fmt.Sprintf("guest-%s", id[:8])
	}
	return &Session{ID: id, out: out, name: displayName}
}

// Name returns the current display name. Never empty.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) setName(name string) (old string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old = s.name
	s.name = name
	return old
}

// RoomName returns the room the session is joined to, or "" when the
// session is connected but not in any room.
func (s *Session) RoomName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) setRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = room
}
