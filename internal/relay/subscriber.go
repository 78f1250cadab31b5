package relay

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/UKHgit/meet-point/internal/domain"
)

// Subscribe starts receiving messages mirrored by peer instances and
// hands them to deliver. Frames published by this instance are skipped.
func (r *Relay) Subscribe(deliver func(room string, msg domain.Message)) error {
	sub, err := r.conn.Subscribe(subjectPrefix+">", func(m *nats.Msg) {
		r.handleFrame(m.Subject, m.Data, deliver)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to relay subjects: %w", err)
	}
	r.sub = sub
	return nil
}

// handleFrame decodes one relay frame and delivers it unless this
// instance published it.
func (r *Relay) handleFrame(subject string, data []byte, deliver func(room string, msg domain.Message)) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.log.Warnf("dropping malformed relay frame on %s: %v", subject, err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	deliver(env.Room, env.Message)
}
