package domain

import (
	"encoding/json"
	"fmt"
)

type CommandType string

const (
	CommandJoin    CommandType = "join"
	CommandMessage CommandType = "message"
	CommandRename  CommandType = "rename"
	CommandTyping  CommandType = "typing"
)

// Command is the closed set of inbound client commands. Dispatch
// switches over the concrete types, so an unhandled command is a
// compile-visible default case rather than a silent no-op.
type Command interface {
	isCommand()
}

type JoinCommand struct {
	Room        string
	DisplayName string
}

type MessageCommand struct {
	Text    string
	ReplyTo *ReplyRef
}

type RenameCommand struct {
	DisplayName string
}

type TypingCommand struct{}

func (JoinCommand) isCommand()    {}
func (MessageCommand) isCommand() {}
func (RenameCommand) isCommand()  {}
func (TypingCommand) isCommand()  {}

// ErrUnknownCommand reports an inbound frame whose type tag is outside
// the closed command set.
type ErrUnknownCommand struct {
	Type string
}

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("unknown command type %q", e.Type)
}

type commandEnvelope struct {
	Type        CommandType `json:"type"`
	Room        string      `json:"room,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	Text        string      `json:"text,omitempty"`
	ReplyTo     *ReplyRef   `json:"replyTo,omitempty"`
}

// DecodeCommand parses one inbound frame into its command variant.
func DecodeCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Type {
	case CommandJoin:
		return JoinCommand{Room: env.Room, DisplayName: env.DisplayName}, nil
	case CommandMessage:
		return MessageCommand{Text: env.Text, ReplyTo: env.ReplyTo}, nil
	case CommandRename:
		return RenameCommand{DisplayName: env.DisplayName}, nil
	case CommandTyping:
		return TypingCommand{}, nil
	default:
		return nil, ErrUnknownCommand{Type: string(env.Type)}
	}
}

// EncodeCommand serializes a command for the wire. Used by clients and
// tests; the server only decodes.
func EncodeCommand(cmd Command) ([]byte, error) {
	var env commandEnvelope
	switch c := cmd.(type) {
	case JoinCommand:
		env = commandEnvelope{Type: CommandJoin, Room: c.Room, DisplayName: c.DisplayName}
	case MessageCommand:
		env = commandEnvelope{Type: CommandMessage, Text: c.Text, ReplyTo: c.ReplyTo}
	case RenameCommand:
		env = commandEnvelope{Type: CommandRename, DisplayName: c.DisplayName}
	case TypingCommand:
		env = commandEnvelope{Type: CommandTyping}
	default:
		return nil, fmt.Errorf("unencodable command %T", cmd)
	}
	return json.Marshal(env)
}
