package models

import "time"

// Transaction is one escrow deposit recorded against a job. Reference is
// the payment processor's identifier and carries a unique index: replaying
// the same confirmation can never create a second row. Amount is immutable
// once recorded.
type Transaction struct {
	ID        string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	JobID     string            `gorm:"type:uuid;not null;index" json:"job_id"`
	PayerID   string            `gorm:"type:uuid;not null" json:"payer_id"`
	PayeeID   string            `gorm:"type:uuid;not null" json:"payee_id"`
	Amount    float64           `gorm:"not null" json:"amount"`
	Reference string            `gorm:"uniqueIndex;not null" json:"reference"`
	Status    TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt time.Time         `gorm:"default:now()" json:"created_at"`
}
