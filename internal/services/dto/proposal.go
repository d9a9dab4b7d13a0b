package dto

import (
	"time"

	"kaamsetu_backend/internal/models"
)

type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ProposalResponse struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	CustomerID     string    `json:"customer_id"`
	TradespersonID string    `json:"tradesperson_id"`
	IsArchived     bool      `json:"is_archived"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageResponse struct {
	ID            string             `json:"id"`
	RoomID        string             `json:"room_id"`
	SenderID      *string            `json:"sender_id,omitempty"`
	Type          models.MessageType `json:"type"`
	Content       string             `json:"content"`
	Price         *float64           `json:"price,omitempty"`
	AppointmentAt *time.Time         `json:"appointment_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
