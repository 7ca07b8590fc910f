package models

import "time"

// Persona represents an AI companion users can chat or call with
type Persona struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"not null" json:"name"`
	Tagline         string    `json:"tagline"`
	ImageURL        string    `json:"image_url"`
	PricePerMin     int64     `gorm:"default:0" json:"price_per_min"`     // chat/call drain, coins per minute
	PricePerMessage int64     `gorm:"default:0" json:"price_per_message"` // per outbound user message
	UnlockPrice     int64     `gorm:"default:0" json:"unlock_price"`      // locked photo unlock cost
	SystemPrompt    string    `json:"-"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
