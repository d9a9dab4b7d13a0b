package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	BaseModel
	UserID   string  `gorm:"type:uuid;not null;index" json:"user_id"`
	SenderID *string `gorm:"type:uuid" json:"sender_id,omitempty"`
	Title    string  `gorm:"not null" json:"title"`
	Message  string  `json:"message"`
	Link     *string `json:"link,omitempty"`
	// Free-form payload for deep links, e.g. {"job_id": "...", "room_id": "..."}
	Data   datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead bool           `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time     `json:"read_at,omitempty"`
}
