package dto

import (
	"time"

	"kaamsetu_backend/internal/models"
)

type CreateJobRequest struct {
	Title       string   `json:"title" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Description string   `json:"description"`
	City        string   `json:"city" binding:"required"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

type UpdateJobRequest struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	City        *string `json:"city"`
}

type AcceptProposalRequest struct {
	RoomID string `json:"room_id" binding:"required"`
}

type DepositIntentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type DepositRequest struct {
	Amount             float64 `json:"amount" binding:"required,gt=0"`
	ProcessorReference string  `json:"processor_reference" binding:"required"`
}

type CompleteJobRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

type JobResponse struct {
	ID          string           `json:"id"`
	CustomerID  string           `json:"customer_id"`
	Title       string           `json:"title"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	City        string           `json:"city"`
	Lat         *float64         `json:"lat,omitempty"`
	Lng         *float64         `json:"lng,omitempty"`
	Status      models.JobStatus `json:"status"`
	AssignedTo  *string          `json:"assigned_to,omitempty"`
	IsPaid      bool             `json:"is_paid"`
	IsCompleted bool             `json:"is_completed"`
	// Only populated for the owning customer once the job is paid.
	CompletionCode string    `json:"completion_code,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type TransactionResponse struct {
	ID        string                   `json:"id"`
	JobID     string                   `json:"job_id"`
	PayerID   string                   `json:"payer_id"`
	PayeeID   string                   `json:"payee_id"`
	Amount    float64                  `json:"amount"`
	Reference string                   `json:"reference"`
	Status    models.TransactionStatus `json:"status"`
	CreatedAt time.Time                `json:"created_at"`
}
