package domain

import (
	"github.com/google/uuid" // UUID primary keys
	"gorm.io/gorm"           // GORM ORM library
)

// Payment Model. Append-only record of a completed payment
// notification from the gateway webhook. Never mutated or deleted.
type Payment struct {
	ID        string `gorm:"type:char(36);primaryKey" json:"id"`                  // Primary key
	StripeID  string `gorm:"column:stripe_id;uniqueIndex;not null" json:"stripeId"` // Gateway transaction id
	Amount    int64  `gorm:"not null" json:"amount"`                              // Amount in minor units
	Currency  string `gorm:"not null" json:"currency"`                            // ISO currency code
	Status    string `gorm:"not null" json:"status"`                              // Gateway status string
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"createdAt"`               // Timestamp of creation in milliseconds
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
