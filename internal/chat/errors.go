package chat

import "errors"

var (
	// ErrEmptyRoom reports a command naming no room.
	ErrEmptyRoom = errors.New("room name is required")
	// ErrEmptyText reports a message with empty or whitespace-only text.
	ErrEmptyText = errors.New("message text must not be empty")
)
