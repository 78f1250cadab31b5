package chat_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/internal/domain"
)

// fakeOutbox records enqueued events; setting full simulates an
// unwritable connection.
type fakeOutbox struct {
	mu     sync.Mutex
	events []domain.Event
	full   bool
	closed bool
}

func (f *fakeOutbox) TryEnqueue(ev domain.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full || f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeOutbox) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeOutbox) all() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeOutbox) messages() []domain.MessageEvent {
	var out []domain.MessageEvent
	for _, ev := range f.all() {
		if m, ok := ev.(domain.MessageEvent); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeOutbox) countMemberLeft() int {
	n := 0
	for _, ev := range f.all() {
		if _, ok := ev.(domain.MemberLeftEvent); ok {
			n++
		}
	}
	return n
}

func newTestRoom(t *testing.T, historyCap int, typingWindow time.Duration) *chat.Room {
	t.Helper()
	reg := chat.NewRegistry(historyCap, typingWindow)
	room, created := reg.GetOrCreate("test-room")
	require.True(t, created)
	return room
}

func TestJoinSnapshotAndMemberJoined(t *testing.T) {
	room := newTestRoom(t, 10, time.Second)

	alice := &fakeOutbox{}
	dead := room.Join("a", "alice", alice)
	assert.Empty(t, dead)

	joined, ok := alice.all()[0].(domain.JoinedEvent)
	require.True(t, ok)
	assert.Equal(t, "test-room", joined.Room)
	assert.Equal(t, []string{"alice"}, joined.Members)
	assert.Empty(t, joined.History)

	bob := &fakeOutbox{}
	room.Join("b", "bob", bob)

	// Existing member sees memberJoined; the joiner does not.
	var aliceSawBob bool
	for _, ev := range alice.all() {
		if mj, ok := ev.(domain.MemberJoinedEvent); ok {
			aliceSawBob = true
			assert.Equal(t, "bob", mj.DisplayName)
		}
	}
	assert.True(t, aliceSawBob)

	bobJoined, ok := bob.all()[0].(domain.JoinedEvent)
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob"}, bobJoined.Members)
	for _, ev := range bob.all() {
		_, isJoin := ev.(domain.MemberJoinedEvent)
		assert.False(t, isJoin)
	}
}

func TestLeaveIdempotent(t *testing.T) {
	room := newTestRoom(t, 10, time.Second)

	alice := &fakeOutbox{}
	bob := &fakeOutbox{}
	room.Join("a", "alice", alice)
	room.Join("b", "bob", bob)

	name, removed, _ := room.Leave("a")
	assert.True(t, removed)
	assert.Equal(t, "alice", name)

	_, removed, _ = room.Leave("a")
	assert.False(t, removed)

	assert.Equal(t, 1, bob.countMemberLeft())
	assert.Equal(t, []string{"bob"}, room.Members())
}

func TestPostOrderPreservedPerRecipient(t *testing.T) {
	room := newTestRoom(t, 100, time.Second)

	alice := &fakeOutbox{}
	bob := &fakeOutbox{}
	room.Join("a", "alice", alice)
	room.Join("b", "bob", bob)

	const n = 20
	postN(t, room, n)

	for _, out := range []*fakeOutbox{alice, bob} {
		got := out.messages()
		require.Len(t, got, n)
		for i, m := range got {
			assert.Equal(t, fmt.Sprintf("m%d", i+1), m.Text)
		}
	}
}

func TestPostOrderUnderConcurrency(t *testing.T) {
	room := newTestRoom(t, 200, time.Second)

	recipient := &fakeOutbox{}
	room.Join("r", "reader", recipient)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				room.Post(domain.NewMessage(room.Name(), "w", "x", nil))
			}
		}()
	}
	wg.Wait()

	// Delivery order must match history order exactly.
	history := room.History()
	delivered := recipient.messages()
	require.Len(t, delivered, len(history))
	for i := range history {
		assert.Equal(t, history[i].ID, delivered[i].ID)
	}
}

func TestTypingExpiry(t *testing.T) {
	room := newTestRoom(t, 10, 50*time.Millisecond)

	alice := &fakeOutbox{}
	bob := &fakeOutbox{}
	room.Join("a", "alice", alice)
	room.Join("b", "bob", bob)

	room.SetTyping("a")
	assert.Equal(t, []string{"alice"}, room.TypingUsers("b"))
	// The typer is excluded from their own view.
	assert.Empty(t, room.TypingUsers("a"))

	// Other members got the live typing event.
	var bobSawTyping bool
	for _, ev := range bob.all() {
		if ty, ok := ev.(domain.TypingEvent); ok {
			bobSawTyping = true
			assert.Equal(t, "alice", ty.DisplayName)
		}
	}
	assert.True(t, bobSawTyping)
	for _, ev := range alice.all() {
		_, isTyping := ev.(domain.TypingEvent)
		assert.False(t, isTyping)
	}

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, room.TypingUsers("b"))
}

func TestRenameBroadcast(t *testing.T) {
	room := newTestRoom(t, 10, time.Second)

	alice := &fakeOutbox{}
	bob := &fakeOutbox{}
	room.Join("a", "alice", alice)
	room.Join("b", "bob", bob)

	old, ok, _ := room.Rename("a", "alicia")
	require.True(t, ok)
	assert.Equal(t, "alice", old)
	assert.Equal(t, []string{"alicia", "bob"}, room.Members())

	var bobSawUpdate bool
	for _, ev := range bob.all() {
		if up, isUpdate := ev.(domain.MemberUpdatedEvent); isUpdate {
			bobSawUpdate = true
			assert.Equal(t, "alicia", up.DisplayName)
			assert.Equal(t, "alice", up.OldName)
		}
	}
	assert.True(t, bobSawUpdate)

	_, ok, _ = room.Rename("ghost", "x")
	assert.False(t, ok)
}

func TestReplySurvivesEviction(t *testing.T) {
	room := newTestRoom(t, 3, time.Second)

	target := domain.NewMessage(room.Name(), "alice", "original words", nil)
	room.Post(target)

	reply := domain.NewMessage(room.Name(), "bob", "agreed",
		domain.NewReplyRef(target.Author, target.Text))
	room.Post(reply)

	// Push the original out of the ring; the reply stays retained.
	postN(t, room, 2)

	history := room.History()
	require.Len(t, history, 3)
	for _, msg := range history {
		assert.NotEqual(t, target.ID, msg.ID)
	}

	retained := history[0]
	require.Equal(t, reply.ID, retained.ID)
	require.NotNil(t, retained.ReplyTo)
	assert.Equal(t, "alice", retained.ReplyTo.Author)
	assert.Equal(t, "original words", retained.ReplyTo.Snippet)
}

func TestUnwritableMemberReported(t *testing.T) {
	room := newTestRoom(t, 10, time.Second)

	alice := &fakeOutbox{}
	stuck := &fakeOutbox{full: true}
	room.Join("a", "alice", alice)
	dead := room.Join("s", "stuck", stuck)

	// The joiner's own snapshot was undeliverable.
	assert.Equal(t, []string{"s"}, dead)

	dead = room.Post(domain.NewMessage(room.Name(), "alice", "hi", nil))
	assert.Equal(t, []string{"s"}, dead)
}
