package relay

import (
	"encoding/json"
	"fmt"

	"github.com/UKHgit/meet-point/internal/domain"
)

type envelope struct {
	Origin  string         `json:"origin"`
	Room    string         `json:"room"`
	Message domain.Message `json:"message"`
}

// PublishMessage mirrors a locally posted message to peer instances.
func (r *Relay) PublishMessage(room string, msg domain.Message) error {
	data, err := json.Marshal(envelope{Origin: r.origin, Room: room, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to serialize relay frame: %w", err)
	}
	return r.conn.Publish(subjectPrefix+room, data)
}
