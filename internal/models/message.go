package models

import "time"

type Message struct {
	ID       string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RoomID   string      `gorm:"type:uuid;not null;index" json:"room_id"`
	SenderID *string     `gorm:"type:uuid;index" json:"sender_id,omitempty"`
	Type     MessageType `gorm:"type:varchar(20);default:'text'" json:"type"`
	Content  string      `gorm:"type:text;not null" json:"content"`
	// Appointment fields, set only for MessageTypeAppointment.
	Price         *float64   `json:"price,omitempty"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	CreatedAt     time.Time  `gorm:"default:now()" json:"created_at"`
}
