package models

type Job struct {
	BaseModel
	CustomerID  string    `gorm:"type:uuid;not null;index" json:"customer_id"`
	Title       string    `gorm:"not null" json:"title"`
	Category    string    `gorm:"not null;index" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	City        string    `gorm:"index" json:"city"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	Status      JobStatus `gorm:"type:varchar(20);default:'open';index" json:"status"`
	AssignedTo  *string   `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	IsPaid      bool      `gorm:"default:false" json:"is_paid"`
	// Shared secret proving completion. Regenerated on every successful
	// deposit so a code from a previous assignment cycle can never be
	// replayed. Never serialized; exposed only through the service layer
	// to the owning customer after payment.
	CompletionCode string `gorm:"not null" json:"-"`
	IsCompleted    bool   `gorm:"default:false" json:"is_completed"`
}
