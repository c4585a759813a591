package domain

import "time"

// ChatMessage is one persisted room chat entry. Append-only; persistence is
// best-effort after broadcast, so a missing row never blocks delivery.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"index;size:191;not null"`
	Username  string    `gorm:"size:191;not null"`
	Message   string    `gorm:"type:text;not null"`
	Time      string    `gorm:"size:64"` // display time as the sender rendered it
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName keeps the original collection name.
func (ChatMessage) TableName() string { return "room_messages" }
