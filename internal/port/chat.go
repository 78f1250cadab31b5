package port

import "github.com/UKHgit/meet-point/internal/domain"

// Roster tracks the global set of online display names, independent of
// room membership. Backed by Redis when configured, in-memory otherwise.
type Roster interface {
	Add(username string) error
	Remove(username string) error
	List() ([]string, error)
	Close() error
}

// Relay mirrors posted messages to peer server instances. Best-effort;
// a relay failure never affects local delivery.
type Relay interface {
	PublishMessage(room string, msg domain.Message) error
}
