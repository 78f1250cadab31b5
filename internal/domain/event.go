package domain

import "encoding/json"

type EventType string

const (
	EventJoined        EventType = "joined"
	EventMessage       EventType = "message"
	EventMemberJoined  EventType = "memberJoined"
	EventMemberLeft    EventType = "memberLeft"
	EventMemberUpdated EventType = "memberUpdated"
	EventTyping        EventType = "typing"
	EventError         EventType = "error"
	EventRooms         EventType = "rooms"
	EventSystem        EventType = "system"
	EventUserCount     EventType = "userCount"
)

// Event is the closed set of server-to-client events. Each variant
// carries its own type tag so a marshalled event is a complete frame.
type Event interface {
	isEvent()
}

// JoinedEvent is sent to the joining session only.
type JoinedEvent struct {
	Type    EventType `json:"type"`
	Room    string    `json:"room"`
	Members []string  `json:"members"`
	History []Message `json:"history"`
}

// MessageEvent is broadcast to every room member, the sender included;
// the echo doubles as delivery confirmation.
type MessageEvent struct {
	Type EventType `json:"type"`
	Message
}

type MemberJoinedEvent struct {
	Type        EventType `json:"type"`
	DisplayName string    `json:"displayName"`
}

type MemberLeftEvent struct {
	Type        EventType `json:"type"`
	DisplayName string    `json:"displayName"`
}

type MemberUpdatedEvent struct {
	Type        EventType `json:"type"`
	DisplayName string    `json:"displayName"`
	OldName     string    `json:"oldName"`
}

type TypingEvent struct {
	Type        EventType `json:"type"`
	DisplayName string    `json:"displayName"`
}

type ErrorEvent struct {
	Type    EventType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

type RoomsEvent struct {
	Type  EventType `json:"type"`
	Rooms []string  `json:"rooms"`
}

type SystemEvent struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}

type UserCountEvent struct {
	Type  EventType `json:"type"`
	Count int       `json:"count"`
}

func (JoinedEvent) isEvent()        {}
func (MessageEvent) isEvent()       {}
func (MemberJoinedEvent) isEvent()  {}
func (MemberLeftEvent) isEvent()    {}
func (MemberUpdatedEvent) isEvent() {}
func (TypingEvent) isEvent()        {}
func (ErrorEvent) isEvent()         {}
func (RoomsEvent) isEvent()         {}
func (SystemEvent) isEvent()        {}
func (UserCountEvent) isEvent()     {}

func NewJoinedEvent(room string, members []string, history []Message) JoinedEvent {
	return JoinedEvent{Type: EventJoined, Room: room, Members: members, History: history}
}

func NewMessageEvent(msg Message) MessageEvent {
	return MessageEvent{Type: EventMessage, Message: msg}
}

func NewMemberJoinedEvent(displayName string) MemberJoinedEvent {
	return MemberJoinedEvent{Type: EventMemberJoined, DisplayName: displayName}
}

func NewMemberLeftEvent(displayName string) MemberLeftEvent {
	return MemberLeftEvent{Type: EventMemberLeft, DisplayName: displayName}
}

func NewMemberUpdatedEvent(displayName, oldName string) MemberUpdatedEvent {
	return MemberUpdatedEvent{Type: EventMemberUpdated, DisplayName: displayName, OldName: oldName}
}

func NewTypingEvent(displayName string) TypingEvent {
	return TypingEvent{Type: EventTyping, DisplayName: displayName}
}

func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Code: code, Message: message}
}

func NewRoomsEvent(rooms []string) RoomsEvent {
	return RoomsEvent{Type: EventRooms, Rooms: rooms}
}

func NewSystemEvent(text string) SystemEvent {
	return SystemEvent{Type: EventSystem, Text: text}
}

func NewUserCountEvent(count int) UserCountEvent {
	return UserCountEvent{Type: EventUserCount, Count: count}
}

// EncodeEvent serializes an event frame.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
