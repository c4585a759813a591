package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Room is the durable record of a named collaboration session. Rooms joined
// over the websocket without a prior create call are ephemeral and never get
// a row here; they exist only in the connection registry.
type Room struct {
	ID                 uint        `gorm:"primaryKey" json:"-"`
	RoomID             string      `gorm:"uniqueIndex;size:191;not null" json:"roomId"`
	Name               string      `gorm:"size:191" json:"name"`
	Owner              string      `gorm:"size:191" json:"owner"`
	LastActive         time.Time   `gorm:"index" json:"lastActive"`
	Files              FileList    `gorm:"type:text" json:"files"`
	WhiteboardElements ElementList `gorm:"type:text" json:"whiteboardElements"`
	CreatedAt          time.Time   `gorm:"autoCreateTime" json:"-"`
	UpdatedAt          time.Time   `gorm:"autoUpdateTime" json:"-"`
}

// File is a code buffer inside a room. Content is last-writer-wins, no merge.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// WhiteboardElement is a drawable primitive. The element collection for a
// room is always replaced wholesale, so the server carries the geometry
// without interpreting it.
type WhiteboardElement struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	X1          float64     `json:"x1,omitempty"`
	Y1          float64     `json:"y1,omitempty"`
	X2          float64     `json:"x2,omitempty"`
	Y2          float64     `json:"y2,omitempty"`
	Points      [][]float64 `json:"points,omitempty"`
	Color       string      `json:"color,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
	Text        string      `json:"text,omitempty"`
}

// FileList stores the room's files as a JSON text column.
type FileList []File

func (l FileList) Value() (driver.Value, error) {
	if l == nil {
		l = FileList{}
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("domain: marshal file list: %w", err)
	}
	return string(bytes), nil
}

func (l *FileList) Scan(src interface{}) error {
	return scanJSON(src, l, "file list")
}

// ElementList stores the room's whiteboard elements as a JSON text column.
type ElementList []WhiteboardElement

func (l ElementList) Value() (driver.Value, error) {
	if l == nil {
		l = ElementList{}
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("domain: marshal element list: %w", err)
	}
	return string(bytes), nil
}

func (l *ElementList) Scan(src interface{}) error {
	return scanJSON(src, l, "element list")
}

func scanJSON(src interface{}, dst interface{}, what string) error {
	if src == nil {
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("domain: unsupported column type %T for %s", src, what)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("domain: unmarshal %s: %w", what, err)
	}
	return nil
}
