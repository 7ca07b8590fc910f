package models

import (
	"time"

	"github.com/google/uuid"
)

// Message kinds
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message represents a message in a conversation
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Role           string    `gorm:"not null" json:"role"` // "user" for ask, "assistant" for answer
	Type           string    `gorm:"not null;default:text" json:"type"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"image_url,omitempty"`
	Locked         bool      `gorm:"default:false" json:"locked"`
	UnlockCost     int64     `gorm:"default:0" json:"unlock_cost,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
