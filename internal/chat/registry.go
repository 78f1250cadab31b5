package chat

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry maps room names to live Room instances. Rooms are created
// lazily on first join and never deleted; an empty room keeps its
// history until the process exits. Known limitation: room count grows
// without bound over the process lifetime, so a hardening pass would
// need idle-room eviction.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	historyCap   int
	typingWindow time.Duration
}

func NewRegistry(historyCap int, typingWindow time.Duration) *Registry {
	if historyCap <= 0 {
		historyCap = 100
	}
	if typingWindow <= 0 {
		typingWindow = 3 * time.Second
	}
	return &Registry{
		rooms:        make(map[string]*Room),
		historyCap:   historyCap,
		typingWindow: typingWindow,
	}
}

// NormalizeRoomName canonicalizes a room name for use as registry key.
func NormalizeRoomName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetOrCreate returns the room for name, creating it if absent. The
// check and the insert happen under one lock, so concurrent callers for
// a brand-new name all observe the same Room instance. The second
// return reports whether this call created the room.
func (reg *Registry) GetOrCreate(name string) (*Room, bool) {
	key := NormalizeRoomName(name)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[key]; ok {
		return room, false
	}
	room := newRoom(key, reg.historyCap, reg.typingWindow)
	reg.rooms[key] = room
	return room, true
}

// Get returns the room for name, or nil if it was never created.
func (reg *Registry) Get(name string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[NormalizeRoomName(name)]
}

// List returns all room names in sorted order.
func (reg *Registry) List() []string {
	reg.mu.RLock()
	names := make([]string, 0, len(reg.rooms))
	for name := range reg.rooms {
		names = append(names, name)
	}
	reg.mu.RUnlock()

	sort.Strings(names)
	return names
}
