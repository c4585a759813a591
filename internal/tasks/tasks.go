// Package tasks defines the asynq task types that carry durable writes off
// the broadcast path. Broadcast never waits on any of these.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"codecast/internal/domain"
)

const (
	TypeCodePersist       = "room:code_persist"
	TypeFilePersist       = "room:file_persist"
	TypeWhiteboardPersist = "room:whiteboard_persist"
	TypeChatPersist       = "room:chat_persist"
	TypeRoomTouchSweep    = "room:touch_sweep"
)

// File lifecycle operations carried by a TypeFilePersist task.
const (
	FileOpCreate = "create"
	FileOpUpdate = "update"
	FileOpRename = "rename"
	FileOpDelete = "delete"
)

type CodePersistPayload struct {
	RoomID  string `json:"roomId"`
	FileID  string `json:"fileId"`
	Content string `json:"content"`
}

type FilePersistPayload struct {
	RoomID string      `json:"roomId"`
	Op     string      `json:"op"`
	File   domain.File `json:"file,omitempty"`
	FileID string      `json:"fileId,omitempty"`
	Name   string      `json:"name,omitempty"`
}

type WhiteboardPersistPayload struct {
	RoomID   string                     `json:"roomId"`
	Elements []domain.WhiteboardElement `json:"elements"`
}

type ChatPersistPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

type RoomTouchSweepPayload struct {
	At time.Time `json:"at"`
}

func NewCodePersistTask(p CodePersistPayload) (*asynq.Task, error) {
	return newTask(TypeCodePersist, p)
}

func NewFilePersistTask(p FilePersistPayload) (*asynq.Task, error) {
	return newTask(TypeFilePersist, p)
}

func NewWhiteboardPersistTask(p WhiteboardPersistPayload) (*asynq.Task, error) {
	return newTask(TypeWhiteboardPersist, p)
}

func NewChatPersistTask(p ChatPersistPayload) (*asynq.Task, error) {
	return newTask(TypeChatPersist, p)
}

func NewRoomTouchSweepTask() (*asynq.Task, error) {
	return newTask(TypeRoomTouchSweep, RoomTouchSweepPayload{At: time.Now().UTC()})
}

func newTask(typename string, payload interface{}) (*asynq.Task, error) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal %s payload: %w", typename, err)
	}
	return asynq.NewTask(typename, bytes), nil
}
