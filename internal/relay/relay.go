// Package relay mirrors posted messages between server instances over
// NATS. Each instance publishes to chat.room.<room> and subscribes with
// a wildcard; frames carry the origin instance id so an instance never
// re-delivers its own messages.
package relay

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/UKHgit/meet-point/pkg/logger"
)

const subjectPrefix = "chat.room."

type Relay struct {
	log    logger.Logger
	conn   *nats.Conn
	origin string
	sub    *nats.Subscription
}

func NewRelay(natsURL string, log logger.Logger) (*Relay, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Relay{
		log:    log.WithModule("relay"),
		conn:   nc,
		origin: uuid.NewString(),
	}, nil
}

func (r *Relay) Close() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	r.conn.Close()
}
