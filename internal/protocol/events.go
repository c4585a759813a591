// Package protocol defines the websocket wire contract: the closed set of
// event names, their payload shapes, and the JSON envelope every frame uses.
// New event kinds are a compile-time decision; the hub dispatches over these
// constants exhaustively and rejects anything else with an error event.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"codecast/internal/domain"
)

// Event names one kind of frame on the wire.
type Event string

const (
	// Client -> server.
	EventJoin            Event = "join"
	EventUserOnline      Event = "user-online"
	EventSyncRequest     Event = "sync-request"
	EventSyncCode        Event = "sync-code"
	EventCodeChange      Event = "code-change"
	EventFileCreated     Event = "file-created"
	EventFileUpdated     Event = "file-updated"
	EventFileRenamed     Event = "file-renamed"
	EventFileDeleted     Event = "file-deleted"
	EventElementUpdate   Event = "element-update"
	EventWhiteboardClear Event = "whiteboard-clear"
	EventCursorPosition  Event = "cursor-position"
	EventSendMessage     Event = "send-message"

	// Server -> client.
	EventJoined            Event = "joined"
	EventDisconnected      Event = "disconnected"
	EventReceiveMessage    Event = "receive-message"
	EventOnlineUsersUpdate Event = "online-users-update"
	EventChatHistory       Event = "chat-history"
	EventError             Event = "error"
)

// ErrMalformed marks a frame whose payload is missing a required field or
// cannot be decoded at all.
var ErrMalformed = errors.New("protocol: malformed payload")

// Envelope is the outer shape of every frame.
type Envelope struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a raw frame into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return env, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	return env, nil
}

// Encode builds a wire frame for the given event and payload.
func Encode(event Event, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal %s payload: %w", event, err)
		}
		raw = bytes
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// ClientInfo identifies one room member on the wire.
type ClientInfo struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
}

type JoinPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

func (p JoinPayload) Validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("%w: join requires roomId", ErrMalformed)
	}
	return nil
}

type JoinedPayload struct {
	Clients      []ClientInfo `json:"clients"`
	Username     string       `json:"username"`
	ConnectionID string       `json:"connectionId"`
}

type DisconnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
}

type UserOnlinePayload struct {
	UserID string `json:"userId"`
}

func (p UserOnlinePayload) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user-online requires userId", ErrMalformed)
	}
	return nil
}

type SyncRequestPayload struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
}

func (p SyncRequestPayload) Validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("%w: sync-request requires roomId", ErrMalformed)
	}
	return nil
}

type SyncCodePayload struct {
	ConnectionID string        `json:"connectionId,omitempty"`
	Files        []domain.File `json:"files"`
}

type CodeChangePayload struct {
	RoomID string `json:"roomId"`
	FileID string `json:"fileId"`
	Code   string `json:"code"`
}

func (p CodeChangePayload) Validate() error {
	if p.RoomID == "" || p.FileID == "" {
		return fmt.Errorf("%w: code-change requires roomId and fileId", ErrMalformed)
	}
	return nil
}

type FilePayload struct {
	RoomID string      `json:"roomId"`
	File   domain.File `json:"file"`
}

func (p FilePayload) Validate() error {
	if p.RoomID == "" || p.File.ID == "" {
		return fmt.Errorf("%w: file event requires roomId and file.id", ErrMalformed)
	}
	return nil
}

type FileRenamedPayload struct {
	RoomID string `json:"roomId"`
	FileID string `json:"fileId"`
	Name   string `json:"name"`
}

func (p FileRenamedPayload) Validate() error {
	if p.RoomID == "" || p.FileID == "" {
		return fmt.Errorf("%w: file-renamed requires roomId and fileId", ErrMalformed)
	}
	return nil
}

type FileDeletedPayload struct {
	RoomID string `json:"roomId"`
	FileID string `json:"fileId"`
}

func (p FileDeletedPayload) Validate() error {
	if p.RoomID == "" || p.FileID == "" {
		return fmt.Errorf("%w: file-deleted requires roomId and fileId", ErrMalformed)
	}
	return nil
}

// ElementUpdatePayload carries the sender's complete element collection, not
// a diff. Last full collection received wins.
type ElementUpdatePayload struct {
	BoardID  string                     `json:"boardId"`
	Elements []domain.WhiteboardElement `json:"elements"`
}

func (p ElementUpdatePayload) Validate() error {
	if p.BoardID == "" {
		return fmt.Errorf("%w: element-update requires boardId", ErrMalformed)
	}
	return nil
}

type WhiteboardClearPayload struct {
	BoardID string `json:"boardId"`
}

func (p WhiteboardClearPayload) Validate() error {
	if p.BoardID == "" {
		return fmt.Errorf("%w: whiteboard-clear requires boardId", ErrMalformed)
	}
	return nil
}

// CursorPositionPayload is broadcast-only and never persisted.
type CursorPositionPayload struct {
	BoardID  string  `json:"boardId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
}

func (p CursorPositionPayload) Validate() error {
	if p.BoardID == "" {
		return fmt.Errorf("%w: cursor-position requires boardId", ErrMalformed)
	}
	return nil
}

type SendMessagePayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

func (p SendMessagePayload) Validate() error {
	if p.RoomID == "" || p.Message == "" {
		return fmt.Errorf("%w: send-message requires roomId and message", ErrMalformed)
	}
	return nil
}

type ReceiveMessagePayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

type ChatHistoryPayload struct {
	RoomID   string                  `json:"roomId"`
	Messages []ReceiveMessagePayload `json:"messages"`
}

// ErrorPayload is the explicit rejection sent instead of silently dropping a
// bad frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeMalformed    = "malformed_payload"
	ErrCodeUnknownEvent = "unknown_event"
)
