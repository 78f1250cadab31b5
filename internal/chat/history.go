package chat

import "github.com/UKHgit/meet-point/internal/domain"

// historyRing is a fixed-capacity FIFO over recent messages. Pushing
// past capacity evicts the oldest entry.
type historyRing struct {
	buf   []domain.Message
	start int
	count int
}

func newHistoryRing(capacity int) historyRing {
	return historyRing{buf: make([]domain.Message, capacity)}
}

func (h *historyRing) push(msg domain.Message) {
	if h.count < len(h.buf) {
		h.buf[(h.start+h.count)%len(h.buf)] = msg
		h.count++
		return
	}
	h.buf[h.start] = msg
	h.start = (h.start + 1) % len(h.buf)
}

// snapshot copies the retained messages, oldest first. Never nil, so
// the joined event serializes as [] rather than null.
func (h *historyRing) snapshot() []domain.Message {
	out := make([]domain.Message, 0, h.count)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}
