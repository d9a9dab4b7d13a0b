package models

// ChatRoom is the negotiation channel between a job's customer and one
// candidate tradesperson. The unique index enforces at most one room per
// (job, tradesperson) pair; rooms are archived, never deleted.
type ChatRoom struct {
	BaseModel
	JobID          string `gorm:"type:uuid;not null;uniqueIndex:idx_rooms_job_tradesperson" json:"job_id"`
	CustomerID     string `gorm:"type:uuid;not null;index" json:"customer_id"`
	TradespersonID string `gorm:"type:uuid;not null;uniqueIndex:idx_rooms_job_tradesperson" json:"tradesperson_id"`
	IsArchived     bool   `gorm:"default:false;index" json:"is_archived"`
}
