package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents a conversation between a user and a persona
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"index:idx_convo_user_persona,unique;not null" json:"user_id"` // device id
	PersonaID uint64    `gorm:"index:idx_convo_user_persona,unique;not null" json:"persona_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
