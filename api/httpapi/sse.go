package httpapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/internal/domain"
	"github.com/UKHgit/meet-point/pkg/logger"
)

const sseKeepAlive = 25 * time.Second

// sseOutbox adapts an SSE response stream to the hub's outbox contract.
// SSE sessions are push-only: they receive the full event stream of
// their room but send no commands after the initial join.
type sseOutbox struct {
	events    chan domain.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newSSEOutbox() *sseOutbox {
	return &sseOutbox{
		events: make(chan domain.Event, 64),
		closed: make(chan struct{}),
	}
}

func (o *sseOutbox) TryEnqueue(ev domain.Event) bool {
	select {
	case <-o.closed:
		return false
	default:
	}
	select {
	case o.events <- ev:
		return true
	default:
		return false
	}
}

func (o *sseOutbox) Close() {
	o.closeOnce.Do(func() { close(o.closed) })
}

// HandleSSE serves GET /api/sse?room=X&displayName=Y: joins the room as
// a regular hub session and streams its events as Server-Sent Events
// until the client goes away.
func HandleSSE(hub *chat.Hub, logg logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomName := r.URL.Query().Get("room")
		if roomName == "" {
			http.Error(w, "room parameter required", http.StatusBadRequest)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		out := newSSEOutbox()
		session := hub.Register(out, r.URL.Query().Get("displayName"))
		hub.Dispatch(session, domain.JoinCommand{Room: roomName})
		defer hub.Disconnect(session)

		logg.Infof("sse stream opened for session %s room %q", session.ID, roomName)

		keepAlive := time.NewTicker(sseKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case ev := <-out.events:
				data, err := domain.EncodeEvent(ev)
				if err != nil {
					logg.Errorf("encode sse event: %v", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case <-out.closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
