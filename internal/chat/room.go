package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/UKHgit/meet-point/internal/domain"
)

// Outbox is the send side of one connection's event queue. TryEnqueue
// must never block: it returns false when the queue is full or closed,
// which the hub treats as an implicit disconnect of that member.
type Outbox interface {
	TryEnqueue(ev domain.Event) bool
	Close()
}

type member struct {
	name string
	out  Outbox
}

type typingEntry struct {
	name string
	at   time.Time
}

// Room holds the state of one chat room: membership, a bounded FIFO
// message history, and ephemeral typing state. Every operation runs
// under the room's own lock, so unrelated rooms proceed concurrently
// while mutations within one room are serialized. Fan-out inside the
// lock only enqueues to member outboxes; it never performs network I/O,
// so a stalled peer cannot block the room.
type Room struct {
	name      string
	createdAt time.Time

	mu           sync.Mutex
	members      map[string]*member
	history      historyRing
	typing       map[string]typingEntry
	typingWindow time.Duration
}

func newRoom(name string, historyCap int, typingWindow time.Duration) *Room {
	return &Room{
		name:         name,
		createdAt:    time.Now(),
		members:      make(map[string]*member),
		history:      newHistoryRing(historyCap),
		typing:       make(map[string]typingEntry),
		typingWindow: typingWindow,
	}
}

func (r *Room) Name() string { return r.name }

func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Join adds a session to the room and delivers, in one critical
// section: the joined snapshot to the joiner, memberJoined to everyone
// else, and the updated user count to all members. Returns the ids of
// members whose outbox rejected delivery.
func (r *Room) Join(sessionID, displayName string, out Outbox) (dead []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[sessionID] = &member{name: displayName, out: out}

	snapshot := domain.NewJoinedEvent(r.name, r.memberNamesLocked(), r.history.snapshot())
	if !out.TryEnqueue(snapshot) {
		dead = append(dead, sessionID)
	}

	dead = append(dead, r.broadcastLocked(domain.NewMemberJoinedEvent(displayName), sessionID)...)
	dead = append(dead, r.broadcastLocked(domain.NewUserCountEvent(len(r.members)), "")...)
	return dedupe(dead)
}

// Leave removes a session from membership and typing state. It is
// idempotent: a session racing an explicit leave with a disconnect
// produces exactly one memberLeft broadcast. The display name is
// captured before removal since it is unrecoverable afterwards.
func (r *Room) Leave(sessionID string) (displayName string, removed bool, dead []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sessionID]
	if !ok {
		return "", false, nil
	}
	displayName = m.name
	delete(r.members, sessionID)
	delete(r.typing, sessionID)

	dead = r.broadcastLocked(domain.NewMemberLeftEvent(displayName), "")
	dead = append(dead, r.broadcastLocked(domain.NewUserCountEvent(len(r.members)), "")...)
	return displayName, true, dedupe(dead)
}

// Post appends a fully-formed message to history, evicting the oldest
// entry at capacity, and broadcasts it to every member including the
// author. Append and fan-out share one critical section so that every
// recipient observes messages in post order.
func (r *Room) Post(msg domain.Message) (dead []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history.push(msg)
	return r.broadcastLocked(domain.NewMessageEvent(msg), "")
}

// Rename updates a member's display name in place and broadcasts
// memberUpdated; no rejoin happens.
func (r *Room) Rename(sessionID, newName string) (oldName string, ok bool, dead []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.members[sessionID]
	if !exists {
		return "", false, nil
	}
	oldName = m.name
	m.name = newName
	if entry, typing := r.typing[sessionID]; typing {
		entry.name = newName
		r.typing[sessionID] = entry
	}

	dead = r.broadcastLocked(domain.NewMemberUpdatedEvent(newName, oldName), "")
	return oldName, true, dead
}

// SetTyping records the current time against the session and notifies
// the other members.
func (r *Room) SetTyping(sessionID string) (dead []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sessionID]
	if !ok {
		return nil
	}
	r.typing[sessionID] = typingEntry{name: m.name, at: time.Now()}
	return r.broadcastLocked(domain.NewTypingEvent(m.name), sessionID)
}

// TypingUsers returns the display names of members typing within the
// window, excluding the caller. Expired entries are pruned as a side
// effect of the read.
func (r *Room) TypingUsers(excludeSessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.typingWindow)
	names := make([]string, 0, len(r.typing))
	for id, entry := range r.typing {
		if entry.at.Before(cutoff) {
			delete(r.typing, id)
			continue
		}
		if id == excludeSessionID {
			continue
		}
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// Members returns the current member display names, sorted.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberNamesLocked()
}

// MemberCount returns the number of joined sessions.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// History returns a copy of the retained messages, oldest first.
func (r *Room) History() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.snapshot()
}

func (r *Room) memberNamesLocked() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.name)
	}
	sort.Strings(names)
	return names
}

// broadcastLocked enqueues ev to every member except excludeID and
// reports the ids whose outbox refused it. Callers hold r.mu.
func (r *Room) broadcastLocked(ev domain.Event, excludeID string) (dead []string) {
	for id, m := range r.members {
		if id == excludeID {
			continue
		}
		if !m.out.TryEnqueue(ev) {
			dead = append(dead, id)
		}
	}
	return dead
}

func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
