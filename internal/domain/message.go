package domain

import (
	"time"

	"github.com/jaevor/go-nanoid"
)

// Message ids are short base36 tokens, unique within a room's retained
// history window. No global ordering guarantee beyond arrival order.
var newMessageID = mustNanoID()

func mustNanoID() func() string {
	gen, err := nanoid.CustomASCII("abcdefghijklmnopqrstuvwxyz0123456789", 9)
	if err != nil {
		panic(err)
	}
	return gen
}

// Message is a chat message as stored in a room's history. Immutable
// once constructed.
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
	ReplyTo   *ReplyRef `json:"replyTo,omitempty"`
}

// ReplyRef is a shallow snapshot of the message being replied to. It is
// copied, not referenced, so the original may be evicted from history
// independently.
type ReplyRef struct {
	Author  string `json:"author"`
	Snippet string `json:"snippet"`
}

const replySnippetMax = 120

// NewReplyRef captures a reply snapshot, truncating the quoted text.
func NewReplyRef(author, text string) *ReplyRef {
	runes := []rune(text)
	if len(runes) > replySnippetMax {
		text = string(runes[:replySnippetMax])
	}
	return &ReplyRef{Author: author, Snippet: text}
}

// NewMessage builds a stored message with a fresh id and a
// server-assigned timestamp. Validation of the text happens before this
// point; callers pass trimmed, non-empty text.
func NewMessage(room, author, text string, replyTo *ReplyRef) Message {
	return Message{
		ID:        newMessageID(),
		Author:    author,
		Text:      text,
		Room:      room,
		Timestamp: time.Now().UTC(),
		ReplyTo:   replyTo,
	}
}
