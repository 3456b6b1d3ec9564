package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment mirrors the latest processor state for one Mollie payment.
// The row is a cache: amount, currency, description, status and checkout_url
// always come from the most recent Mollie response.
type Payment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	MollieID       *string        `gorm:"size:255;uniqueIndex" json:"mollie_id"`
	IdempotencyKey *string        `gorm:"size:255;uniqueIndex" json:"-"`
	Amount         float64        `json:"amount"`
	Currency       string         `gorm:"size:3;default:'EUR'" json:"currency"`
	Description    string         `gorm:"size:255" json:"description"`
	Status         string         `gorm:"size:20;not null;default:'open';index" json:"status"` // open, pending, paid, canceled, failed, expired
	CheckoutURL    string         `gorm:"size:512" json:"checkout_url"`
	Metadata       datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
