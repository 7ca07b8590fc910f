package models

import (
	"time"
)

// User represents an anonymous account holding a coin balance
type User struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID   string    `gorm:"uniqueIndex;not null" json:"device_id"` // base58 anonymous identity
	Coins      int64     `gorm:"default:0" json:"coins"`                // Current coin balance
	CoinsSpent int64     `gorm:"default:0" json:"coins_spent"`          // Total coins spent
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
