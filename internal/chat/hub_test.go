package chat_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/internal/domain"
	"github.com/UKHgit/meet-point/internal/presence"
	"github.com/UKHgit/meet-point/pkg/logger"
)

func newTestHub(t *testing.T) *chat.Hub {
	t.Helper()
	reg := chat.NewRegistry(100, time.Second)
	return chat.NewHub(logger.NewLogger("error", ""), reg, presence.NewMemoryRoster())
}

func (f *fakeOutbox) errors() []domain.ErrorEvent {
	var out []domain.ErrorEvent
	for _, ev := range f.all() {
		if e, ok := ev.(domain.ErrorEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeOutbox) joined() []domain.JoinedEvent {
	var out []domain.JoinedEvent
	for _, ev := range f.all() {
		if e, ok := ev.(domain.JoinedEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

func TestRegisterSendsRoomListAndWelcome(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}

	s := hub.Register(out, "")
	require.NotEmpty(t, s.Name(), "display name defaults to a placeholder")

	events := out.all()
	require.GreaterOrEqual(t, len(events), 2)
	rooms, ok := events[0].(domain.RoomsEvent)
	require.True(t, ok)
	assert.Empty(t, rooms.Rooms)
	_, ok = events[1].(domain.SystemEvent)
	assert.True(t, ok)

	users, err := hub.Roster().List()
	require.NoError(t, err)
	assert.Contains(t, users, s.Name())
}

func TestSendBeforeJoinRejected(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	s := hub.Register(out, "alice")

	hub.Dispatch(s, domain.MessageCommand{Text: "hello"})

	errs := out.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "no_room", errs[0].Code)
	// No room state was touched.
	assert.Empty(t, hub.Registry().List())
}

func TestJoinEmptyRoomRejected(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	s := hub.Register(out, "alice")

	hub.Dispatch(s, domain.JoinCommand{Room: "   "})

	errs := out.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "empty_room", errs[0].Code)
	assert.Empty(t, s.RoomName(), "session stays out of any room")
}

func TestEmptyMessageRejected(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	s := hub.Register(out, "alice")
	hub.Dispatch(s, domain.JoinCommand{Room: "general"})

	hub.Dispatch(s, domain.MessageCommand{Text: "   \t  "})

	errs := out.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "empty_text", errs[0].Code)
	assert.Empty(t, hub.Registry().Get("general").History())
}

// The end-to-end presence scenario: join, second join, message echo,
// disconnect with exactly one memberLeft.
func TestJoinMessageDisconnectScenario(t *testing.T) {
	hub := newTestHub(t)

	aOut := &fakeOutbox{}
	a := hub.Register(aOut, "A")
	hub.Dispatch(a, domain.JoinCommand{Room: "general"})

	aJoined := aOut.joined()
	require.Len(t, aJoined, 1)
	assert.Equal(t, "general", aJoined[0].Room)
	assert.Equal(t, []string{"A"}, aJoined[0].Members)
	assert.Empty(t, aJoined[0].History)

	bOut := &fakeOutbox{}
	b := hub.Register(bOut, "B")
	hub.Dispatch(b, domain.JoinCommand{Room: "general"})

	bJoined := bOut.joined()
	require.Len(t, bJoined, 1)
	assert.Equal(t, []string{"A", "B"}, bJoined[0].Members)

	var aSawB bool
	for _, ev := range aOut.all() {
		if mj, ok := ev.(domain.MemberJoinedEvent); ok {
			aSawB = true
			assert.Equal(t, "B", mj.DisplayName)
		}
	}
	assert.True(t, aSawB)

	hub.Dispatch(a, domain.MessageCommand{Text: "hi"})
	for _, out := range []*fakeOutbox{aOut, bOut} {
		msgs := out.messages()
		require.Len(t, msgs, 1, "sender sees its own echo too")
		assert.Equal(t, "A", msgs[0].Author)
		assert.Equal(t, "hi", msgs[0].Text)
	}

	hub.Disconnect(a)
	hub.Disconnect(a) // racing a second disconnect must be a no-op

	require.Equal(t, 1, bOut.countMemberLeft())
	assert.Equal(t, []string{"B"}, hub.Registry().Get("general").Members())
	assert.Equal(t, 1, hub.SessionCount())
}

func TestJoinIsLeaveThenJoin(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	s := hub.Register(out, "alice")

	hub.Dispatch(s, domain.JoinCommand{Room: "first"})
	hub.Dispatch(s, domain.JoinCommand{Room: "second"})

	assert.Equal(t, "second", s.RoomName())
	assert.Empty(t, hub.Registry().Get("first").Members())
	assert.Equal(t, []string{"alice"}, hub.Registry().Get("second").Members())
}

func TestRenameInPlace(t *testing.T) {
	hub := newTestHub(t)

	aOut := &fakeOutbox{}
	a := hub.Register(aOut, "alice")
	bOut := &fakeOutbox{}
	b := hub.Register(bOut, "bob")
	hub.Dispatch(a, domain.JoinCommand{Room: "general"})
	hub.Dispatch(b, domain.JoinCommand{Room: "general"})

	hub.Dispatch(a, domain.RenameCommand{DisplayName: "alicia"})

	assert.Equal(t, "alicia", a.Name())
	assert.Equal(t, "general", a.RoomName(), "rename does not rejoin")

	var bobSaw bool
	for _, ev := range bOut.all() {
		if up, ok := ev.(domain.MemberUpdatedEvent); ok {
			bobSaw = true
			assert.Equal(t, "alicia", up.DisplayName)
			assert.Equal(t, "alice", up.OldName)
		}
	}
	assert.True(t, bobSaw)

	users, err := hub.Roster().List()
	require.NoError(t, err)
	assert.Contains(t, users, "alicia")
	assert.NotContains(t, users, "alice")
}

func TestRenameEmptyRejected(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	s := hub.Register(out, "alice")

	hub.Dispatch(s, domain.RenameCommand{DisplayName: "  "})

	errs := out.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "bad_payload", errs[0].Code)
	assert.Equal(t, "alice", s.Name())
}

func TestTypingOutsideRoomIgnored(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	s := hub.Register(out, "alice")

	hub.Dispatch(s, domain.TypingCommand{})
	assert.Empty(t, out.errors())
}

func TestUnwritableSessionReaped(t *testing.T) {
	hub := newTestHub(t)

	liveOut := &fakeOutbox{}
	live := hub.Register(liveOut, "live")
	hub.Dispatch(live, domain.JoinCommand{Room: "general"})

	stuckOut := &fakeOutbox{full: true}
	stuck := hub.Register(stuckOut, "stuck")
	hub.Dispatch(stuck, domain.JoinCommand{Room: "general"})

	// The stuck session could not take its own joined snapshot, so the
	// hub ran the disconnect path for it.
	assert.Equal(t, 1, hub.SessionCount())
	assert.Equal(t, []string{"live"}, hub.Registry().Get("general").Members())
	require.Equal(t, 1, liveOut.countMemberLeft())
}

// Membership stays a subset of live sessions through any interleaving
// of disconnects with posts.
func TestMembershipUnderConcurrentDisconnects(t *testing.T) {
	hub := newTestHub(t)

	const total = 40
	sessions := make([]*chat.Session, total)
	for i := 0; i < total; i++ {
		sessions[i] = hub.Register(&fakeOutbox{}, "")
		hub.Dispatch(sessions[i], domain.JoinCommand{Room: "busy"})
	}

	var wg sync.WaitGroup
	for i := 0; i < total/2; i++ {
		wg.Add(2)
		go func(s *chat.Session) {
			defer wg.Done()
			hub.Disconnect(s)
		}(sessions[i])
		go func(s *chat.Session) {
			defer wg.Done()
			hub.Dispatch(s, domain.MessageCommand{Text: "still here"})
		}(sessions[total/2+i])
	}
	wg.Wait()

	assert.Equal(t, total/2, hub.SessionCount())
	assert.Equal(t, total/2, hub.Registry().Get("busy").MemberCount())
}

// A join arriving after the session's disconnect completed must not
// re-insert it into a room or touch the roster.
func TestJoinAfterDisconnectIgnored(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	s := hub.Register(out, "ghost")
	hub.Disconnect(s)

	hub.Dispatch(s, domain.JoinCommand{Room: "general", DisplayName: "haunting"})

	assert.Equal(t, 0, hub.SessionCount())
	assert.Nil(t, hub.Registry().Get("general"))

	users, err := hub.Roster().List()
	require.NoError(t, err)
	assert.Empty(t, users)
}

// Whichever way a join races a disconnect, no membership outlives the
// session.
func TestJoinRacingDisconnect(t *testing.T) {
	hub := newTestHub(t)
	room, _ := hub.Registry().GetOrCreate("contested")

	for i := 0; i < 200; i++ {
		s := hub.Register(&fakeOutbox{}, "racer")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Dispatch(s, domain.JoinCommand{Room: "contested"})
		}()
		go func() {
			defer wg.Done()
			hub.Disconnect(s)
		}()
		wg.Wait()

		require.Empty(t, room.Members(), "iteration %d", i)
	}
	assert.Equal(t, 0, hub.SessionCount())
}

// A relayed message that creates the room announces it locally, same as
// the local creation paths.
func TestDeliverRemoteAnnouncesNewRoom(t *testing.T) {
	hub := newTestHub(t)
	out := &fakeOutbox{}
	hub.Register(out, "watcher")

	hub.DeliverRemote("mirrored", domain.NewMessage("mirrored", "peer", "hi", nil))

	var announced bool
	for _, ev := range out.all() {
		if r, ok := ev.(domain.RoomsEvent); ok && len(r.Rooms) > 0 {
			announced = true
			assert.Contains(t, r.Rooms, "mirrored")
		}
	}
	assert.True(t, announced)

	history := hub.Registry().Get("mirrored").History()
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)
}

func TestPostExternal(t *testing.T) {
	hub := newTestHub(t)

	memberOut := &fakeOutbox{}
	member := hub.Register(memberOut, "watcher")
	hub.Dispatch(member, domain.JoinCommand{Room: "general"})

	_, err := hub.PostExternal("", "poster", "hi", nil)
	assert.ErrorIs(t, err, chat.ErrEmptyRoom)
	_, err = hub.PostExternal("general", "poster", "  ", nil)
	assert.ErrorIs(t, err, chat.ErrEmptyText)

	msg, err := hub.PostExternal("General", "poster", " hello ", nil)
	require.NoError(t, err)
	assert.Equal(t, "general", msg.Room)
	assert.Equal(t, "hello", msg.Text)
	assert.NotEmpty(t, msg.ID)

	msgs := memberOut.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "poster", msgs[0].Author)

	history := hub.Registry().Get("general").History()
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}
